package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSQSClient is a mock implementation of the SQS client for testing.
type mockSQSClient struct {
	sendMessageFunc func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func (m *mockSQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, params, optFns...)
	}
	return &sqs.SendMessageOutput{}, nil
}

func testMessage() ServiceRequestMessage {
	return ServiceRequestMessage{
		EventID:          "e-1",
		EventType:        "service_request.created",
		ServiceRequestID: "123",
		ClientID:         "c-1",
		Title:            "Brakes squeal",
		Status:           "pending",
		OccurredAt:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublisher_PublishServiceRequestMessage(t *testing.T) {
	t.Run("successful message publish", func(t *testing.T) {
		// given
		queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/test-queue"
		ctx := context.Background()

		var sent ServiceRequestMessage
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				assert.Equal(t, queueURL, *params.QueueUrl)
				require.NotNil(t, params.MessageBody)
				require.NoError(t, json.Unmarshal([]byte(*params.MessageBody), &sent))
				assert.Equal(t, "service_request.created", *params.MessageAttributes["event_type"].StringValue)
				return &sqs.SendMessageOutput{
					MessageId: aws.String("test-message-id"),
				}, nil
			},
		}

		publisher := NewPublisher(mockClient, queueURL)

		// when
		err := publisher.PublishServiceRequestMessage(ctx, testMessage())

		// then
		require.NoError(t, err)
		assert.Equal(t, testMessage(), sent)
	})

	t.Run("error sending message", func(t *testing.T) {
		// given
		queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/test-queue"
		ctx := context.Background()

		expectedErr := errors.New("failed to send message")
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, _ *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				return nil, expectedErr
			},
		}

		publisher := NewPublisher(mockClient, queueURL)

		// when
		err := publisher.PublishServiceRequestMessage(ctx, testMessage())

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send message to SQS")
		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestNewPublisher(t *testing.T) {
	t.Run("creates publisher successfully", func(t *testing.T) {
		// given
		mockClient := &mockSQSClient{}
		queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/test-queue"

		// when
		publisher := NewPublisher(mockClient, queueURL)

		// then
		require.NotNil(t, publisher)
		assert.Equal(t, queueURL, publisher.queueURL)
	})
}
