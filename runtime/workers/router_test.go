package workers

import (
	"context"
	"testing"
	"time"

	"chatify/contract"
	"chatify/domain/event"
	"chatify/internal"
	"chatify/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRouter_DeliverToRecipients_LiveSessions(t *testing.T) {
	req := require.New(t)
	log := internal.Logger("debug")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockNotifier := mocks.NewMockINotifier(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	router := NewRouter(log, mockRegistry, mockNotifier, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	done := make(chan struct{})
	count := 0
	// Given both recipients hold one live session each
	mockRegistry.EXPECT().SinksForUser("alice").Return([]contract.EventSink{mockSink}).Times(1)
	mockRegistry.EXPECT().SinksForUser("bob").Return([]contract.EventSink{mockSink}).Times(1)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(ctx context.Context, evt event.DomainEvent) {
			count++
			if count == 2 {
				close(done)
			}
		}).Return(nil).
		Times(2)

	evt := event.MessageReceived{}

	// When the event fans out
	router.DeliverToRecipients(evt, []Recipient{{UserID: "alice"}, {UserID: "bob"}})

	// Then both sinks consumed it
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Goroutine did not terminated at time")
	}
}

func TestRouter_DeliverToRecipients_PushFallback(t *testing.T) {
	req := require.New(t)
	log := internal.Logger("debug")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockNotifier := mocks.NewMockINotifier(ctrl)

	router := NewRouter(log, mockRegistry, mockNotifier, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	done := make(chan struct{})
	// Given the recipient has no live session
	mockRegistry.EXPECT().SinksForUser("carol").Return(nil).Times(1)
	// Then the push fallback fires exactly once
	mockNotifier.EXPECT().Send(gomock.Any(), "fcm-token", "Alice", "Hello", gomock.Any()).Do(
		func(ctx context.Context, token, title, body string, data map[string]string) {
			close(done)
		}).Return(nil).
		Times(1)

	// When the event fans out with a push fallback
	router.DeliverToRecipients(event.MessageReceived{}, []Recipient{{
		UserID: "carol",
		Push:   &Push{Token: "fcm-token", Title: "Alice", Body: "Hello"},
	}})

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Goroutine did not terminated at time")
	}
}

func TestRouter_DeliverToRoom_SkipsOriginator(t *testing.T) {
	req := require.New(t)
	log := internal.Logger("debug")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockNotifier := mocks.NewMockINotifier(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	router := NewRouter(log, mockRegistry, mockNotifier, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	done := make(chan struct{})
	// Given the registry already excludes the originating session
	mockRegistry.EXPECT().SinksForRoom("room-1", "session-a").
		Return([]contract.EventSink{mockSink}).Times(1)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(ctx context.Context, evt event.DomainEvent) {
			close(done)
		}).Return(nil).
		Times(1)

	// When a typing indicator targets the room
	router.DeliverToRoom("room-1", "session-a", event.Typing{ChatID: "room-1", UserID: "alice"})

	// Then only the remaining room session consumed it
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Goroutine did not terminated at time")
	}
}

func TestRouter_DeliverToUser_NoSessions_NothingEnqueued(t *testing.T) {
	req := require.New(t)
	log := internal.Logger("debug")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockNotifier := mocks.NewMockINotifier(ctrl)

	router := NewRouter(log, mockRegistry, mockNotifier, 10)

	// Given the user is offline and no push fallback exists
	mockRegistry.EXPECT().SinksForUser("dave").Return(nil).Times(1)

	// When delivering without a running loop
	router.DeliverToUser("dave", event.Connected{})

	// Then the empty job was discarded instead of queued
	req.Empty(router.jobs)
}

func TestRouter_QueueFull_DropsEvent(t *testing.T) {
	req := require.New(t)
	log := internal.Logger("debug")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockNotifier := mocks.NewMockINotifier(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	// Given a queue of one with no consumer draining it
	router := NewRouter(log, mockRegistry, mockNotifier, 1)
	mockRegistry.EXPECT().SinksForUser("erin").Return([]contract.EventSink{mockSink}).Times(2)

	// When two events arrive back to back
	router.DeliverToUser("erin", event.Connected{})
	router.DeliverToUser("erin", event.Connected{})

	// Then the second was dropped, never blocking the producer
	req.Len(router.jobs, 1)
}

func TestRouter_SlowSink_TimesOut(t *testing.T) {
	log := internal.Logger("debug")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockNotifier := mocks.NewMockINotifier(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	router := NewRouter(log, mockRegistry, mockNotifier, 10)

	// Given a sink that never accepts the event
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()     // Waiting for timeout to trigger cancellation
			return ctx.Err() // Sending back "context deadline exceeded"
		}).Times(1)

	// When delivering directly with a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	router.deliver(ctx, job{sinks: []contract.EventSink{mockSink}, event: event.Connected{}})

	// Then deliver returned despite the stuck sink
}
