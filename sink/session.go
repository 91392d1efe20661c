// Package sink bridges the delivery router to a live connection. Each open
// websocket owns one SessionSink; the gateway's write loop drains it.
package sink

import (
	"context"

	"chatify/domain/event"
	"chatify/errors"
)

type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume hands the event to the session's write loop. A full buffer means
// the client stopped reading; the event is dropped rather than stalling
// the router behind one slow connection.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSessionBufferFull
	}
}
