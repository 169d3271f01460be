package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/service"
	"github.com/iyhunko/mechanic-matching/internal/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStatusEvent(t *testing.T, req *model.ServiceRequest, previous model.ServiceRequestStatus) *model.Event {
	t.Helper()
	event, err := model.NewEvent(model.EventServiceRequestStatus, model.NewServiceRequestEventData(req, previous))
	require.NoError(t, err)
	event.InitMeta()
	return event
}

func TestOutboxWorker_ProcessEvents(t *testing.T) {
	t.Run("should publish pending events and mark them processed", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		mechanicID := uuid.New()
		req := &model.ServiceRequest{ID: uuid.New(), ClientID: uuid.New(), MechanicID: &mechanicID, Title: "Brakes", Status: model.StatusAccepted}
		event := newStatusEvent(t, req, model.StatusPending)

		events.On("List", mock.Anything, mock.MatchedBy(func(q repository.Query) bool { return q.Limit == 100 })).
			Return([]repository.Resource{event}, nil)
		publisher.On("PublishServiceRequestMessage", mock.Anything, mock.MatchedBy(func(msg sqs.ServiceRequestMessage) bool {
			return msg.EventID == event.ID.String() &&
				msg.EventType == model.EventServiceRequestStatus &&
				msg.ServiceRequestID == req.ID.String() &&
				msg.MechanicID == mechanicID.String() &&
				msg.Status == "accepted" &&
				msg.PreviousStatus == "pending"
		})).Return(nil)
		events.On("UpdateStatus", mock.Anything, event.ID, model.EventStatusProcessed).Return(nil)

		worker := service.NewOutboxWorker(events, publisher, time.Second)

		// when
		worker.ProcessEvents(context.Background())

		// then
		events.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("should mark event failed when publishing fails", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		event := newStatusEvent(t, &model.ServiceRequest{ID: uuid.New(), ClientID: uuid.New(), Status: model.StatusCancelled}, model.StatusPending)

		events.On("List", mock.Anything, mock.Anything).Return([]repository.Resource{event}, nil)
		publisher.On("PublishServiceRequestMessage", mock.Anything, mock.Anything).Return(errors.New("queue unavailable"))
		events.On("UpdateStatus", mock.Anything, event.ID, model.EventStatusFailed).Return(nil)

		// when
		service.NewOutboxWorker(events, publisher, time.Second).ProcessEvents(context.Background())

		// then
		events.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("should mark undecodable events failed without publishing", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		event := &model.Event{ID: uuid.New(), EventType: model.EventServiceRequestCreated, EventData: []byte("not json")}

		events.On("List", mock.Anything, mock.Anything).Return([]repository.Resource{event}, nil)
		events.On("UpdateStatus", mock.Anything, event.ID, model.EventStatusFailed).Return(nil)

		// when
		service.NewOutboxWorker(events, publisher, time.Second).ProcessEvents(context.Background())

		// then
		events.AssertExpectations(t)
		publisher.AssertNotCalled(t, "PublishServiceRequestMessage", mock.Anything, mock.Anything)
	})

	t.Run("should stop when listing fails", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		events.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		// when
		service.NewOutboxWorker(events, publisher, time.Second).ProcessEvents(context.Background())

		// then
		events.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		publisher.AssertNotCalled(t, "PublishServiceRequestMessage", mock.Anything, mock.Anything)
	})
}

func TestOutboxWorker_StartStop(t *testing.T) {
	t.Run("worker stops on Stop", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		events.On("List", mock.Anything, mock.Anything).Return([]repository.Resource{}, nil).Maybe()
		worker := service.NewOutboxWorker(events, new(MockPublisher), 10*time.Millisecond)

		done := make(chan struct{})
		go func() {
			worker.Start(context.Background())
			close(done)
		}()

		// when
		time.Sleep(30 * time.Millisecond)
		worker.Stop()

		// then
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
	})

	t.Run("worker stops on context cancellation", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		worker := service.NewOutboxWorker(events, new(MockPublisher), time.Hour)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			worker.Start(ctx)
			close(done)
		}()

		// when
		cancel()

		// then
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
		assert.Empty(t, events.Calls)
	})
}
