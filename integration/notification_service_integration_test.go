package integration

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/service"
	sqspkg "github.com/iyhunko/mechanic-matching/internal/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789/test-queue"

// MockSQSClient implements the ConsumerAPI interface for testing.
type MockSQSClient struct {
	mock.Mock
}

func (m *MockSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

// memoryQueue is an in-process queue satisfying both the publisher and consumer APIs.
type memoryQueue struct {
	mu       sync.Mutex
	messages []types.Message
	deleted  []string
}

func (q *memoryQueue) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	handle := "receipt-" + strconv.Itoa(len(q.messages))
	q.messages = append(q.messages, types.Message{Body: params.MessageBody, ReceiptHandle: &handle})
	return &sqs.SendMessageOutput{}, nil
}

func (q *memoryQueue) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	batch := q.messages
	q.messages = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (q *memoryQueue) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, *params.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

func runConsumer(t *testing.T, consumer *sqspkg.Consumer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	select {
	case err := <-done:
		assert.Error(t, err) // context.DeadlineExceeded
	case <-time.After(3 * time.Second):
		t.Fatal("Test timed out")
	}
}

func TestOutboxToNotification_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	_, repos := NewTestAPI(t, testDB)
	testDB.TruncateTables(t)

	ctx := context.Background()
	client, err := repos.Users().Create(ctx, &model.User{
		Name: "Ana", Email: "ana@example.com", PasswordHash: "x", IsActive: true,
		Roles: model.NewRoleSet(model.RoleClient),
	})
	require.NoError(t, err)

	title, description, serviceType, hours := "Battery dead", "Car does not start", "electrico", 1.0
	created, err := service.NewServiceRequestService(repos).Create(ctx, client, service.ServiceRequestInput{
		Title:                  &title,
		Description:            &description,
		ServiceType:            &serviceType,
		EstimatedDurationHours: &hours,
	})
	require.NoError(t, err)

	queue := &memoryQueue{}
	worker := service.NewOutboxWorker(repos.Events(), sqspkg.NewPublisher(queue, testQueueURL), time.Second)

	// when
	worker.ProcessEvents(ctx)

	// then the event is published and marked processed
	require.Len(t, queue.messages, 1)
	var msg sqspkg.ServiceRequestMessage
	require.NoError(t, json.Unmarshal([]byte(*queue.messages[0].Body), &msg))
	assert.Equal(t, model.EventServiceRequestCreated, msg.EventType)
	assert.Equal(t, created.ID.String(), msg.ServiceRequestID)
	assert.Equal(t, client.ID.String(), msg.ClientID)
	assert.Equal(t, "pending", msg.Status)

	var pending int
	require.NoError(t, testDB.DB.QueryRow(`SELECT COUNT(*) FROM events WHERE status = 'pending'`).Scan(&pending))
	assert.Zero(t, pending)

	// and the notification service consumes and deletes it
	runConsumer(t, sqspkg.NewConsumer(queue, testQueueURL))
	assert.Equal(t, []string{"receipt-0"}, queue.deleted)
}

func TestNotificationService_Integration(t *testing.T) {
	bodies := map[string]*string{
		"invalid json":       func() *string { s := "invalid json message"; return &s }(),
		"missing request id": func() *string { s := `{"event_type":"service_request.created"}`; return &s }(),
		"nil body":           nil,
	}

	for name, body := range bodies {
		t.Run("consumer keeps message with "+name, func(t *testing.T) {
			mockClient := new(MockSQSClient)
			consumer := sqspkg.NewConsumer(mockClient, testQueueURL)
			receiptHandle := "test-receipt-handle"

			mockClient.On("ReceiveMessage", mock.Anything, mock.Anything).Return(
				&sqs.ReceiveMessageOutput{Messages: []types.Message{{Body: body, ReceiptHandle: &receiptHandle}}},
				nil,
			).Once()
			// Return empty messages on subsequent calls
			mockClient.On("ReceiveMessage", mock.Anything, mock.Anything).Return(
				&sqs.ReceiveMessageOutput{Messages: []types.Message{}},
				nil,
			)

			runConsumer(t, consumer)

			mockClient.AssertExpectations(t)
			mockClient.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
		})
	}
}
