package notify

import (
	"log/slog"
)

// Notifier shows short guidance messages to the user
type Notifier interface {
	Notify(title, body string) error
	Close() error
}

// LogNotifier writes messages to the default logger
type LogNotifier struct{}

// Notify logs the message
func (LogNotifier) Notify(title, body string) error {
	slog.Info("Guidance", "title", title, "message", body)
	return nil
}

// Close is a no-op
func (LogNotifier) Close() error {
	return nil
}
