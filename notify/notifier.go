// Package notify holds push-notification backends. The log notifier is the
// development default; a real FCM client plugs in behind contract.INotifier.
package notify

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, token, title, body string, data map[string]string) error {
	n.log.Info("Push notification", "token", token, "title", title, "body", body, "data", data)
	return nil
}
