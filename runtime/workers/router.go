package workers

import (
	"context"
	"log/slog"
	"time"

	"chatify/contract"
	"chatify/domain/event"
)

const consumeTimeout = 5 * time.Second

// Push describes one pending push notification for an offline recipient.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Recipient is one delivery target of a chat-scoped event. When Push is
// set it is used as the fallback if the user has no live session.
type Recipient struct {
	UserID string
	Push   *Push
}

type job struct {
	sinks  []contract.EventSink
	event  event.DomainEvent
	pushes []Push
}

// Router is the delivery worker. Producers resolve live sessions against
// the registry and enqueue; the Run loop writes to the sinks and fires
// push notifications. Delivery is best effort: a slow or dead session
// never blocks the operation that produced the event, and failures are
// logged, not returned.
type Router struct {
	log      *slog.Logger
	registry contract.IRegistry
	notifier contract.INotifier
	jobs     chan job
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, notifier contract.INotifier, queueSize int) *Router {
	return &Router{
		log:      log,
		registry: registry,
		notifier: notifier,
		jobs:     make(chan job, queueSize),
	}
}

func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case j := <-r.jobs:
			r.deliver(ctx, j)
		case <-ctx.Done():
			r.log.Debug("Context done, stopping delivery")
			return nil
		}
	}
}

func (r *Router) deliver(ctx context.Context, j job) {
	for _, sink := range j.sinks {
		consumeCtx, cancel := context.WithTimeout(ctx, consumeTimeout)
		if err := sink.Consume(consumeCtx, j.event); err != nil {
			r.log.Warn("Event delivery failed", "event", j.event.Name(), "error", err)
		}
		cancel()
	}
	for _, p := range j.pushes {
		if err := r.notifier.Send(ctx, p.Token, p.Title, p.Body, p.Data); err != nil {
			r.log.Warn("Push notification failed", "error", err)
		}
	}
}

func (r *Router) enqueue(j job) {
	if len(j.sinks) == 0 && len(j.pushes) == 0 {
		return
	}
	select {
	case r.jobs <- j:
	default:
		r.log.Warn("Delivery queue full, event dropped", "event", j.event.Name())
	}
}

// DeliverToRecipients fans a chat-scoped event out to every live session
// of each recipient. Recipients without a session get their push fallback
// instead, if one was provided.
func (r *Router) DeliverToRecipients(evt event.DomainEvent, recipients []Recipient) {
	var j job
	j.event = evt
	for _, rec := range recipients {
		sinks := r.registry.SinksForUser(rec.UserID)
		if len(sinks) == 0 {
			if rec.Push != nil {
				j.pushes = append(j.pushes, *rec.Push)
			}
			continue
		}
		j.sinks = append(j.sinks, sinks...)
	}
	r.enqueue(j)
}

// DeliverToUser targets every live session of one user.
func (r *Router) DeliverToUser(userID string, evt event.DomainEvent) {
	r.enqueue(job{sinks: r.registry.SinksForUser(userID), event: evt})
}

// DeliverToRoom targets the sessions subscribed to a chat room, skipping
// the session the event originated from.
func (r *Router) DeliverToRoom(chatID, excludeSessionID string, evt event.DomainEvent) {
	r.enqueue(job{sinks: r.registry.SinksForRoom(chatID, excludeSessionID), event: evt})
}

// Broadcast targets every bound session except the subject's own, used
// for presence transitions.
func (r *Router) Broadcast(excludeUserID string, evt event.DomainEvent) {
	r.enqueue(job{sinks: r.registry.AllSinks(excludeUserID), event: evt})
}
