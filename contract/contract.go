//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatify/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor recovers panics and
// restarts it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without manual naming in the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives events bound for one live session. Implementations
// must never block the caller beyond ctx.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the presence registry: the only in-process shared mutable
// structure. A user may hold several simultaneous sessions.
type IRegistry interface {
	Connect(sessionID string, sink EventSink)
	Setup(sessionID, userID string)
	JoinChat(sessionID, chatID string)
	Disconnect(sessionID string) (userID string, lastSession bool)
	IsOnline(userID string) bool
	SinksForUser(userID string) []EventSink
	SinksForRoom(chatID, excludeSessionID string) []EventSink
	AllSinks(excludeUserID string) []EventSink
}

// INotifier is the push-notification collaborator. Failures are logged by
// callers and never surfaced to the request that triggered the push.
type INotifier interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}
