// Package notify delivers operator notifications about console operations to one or more
// sinks: the process log, connected browsers, NATS, MQTT or a Kafka topic.
package notify

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelDanger  Level = "danger"
)

// Notification is a single message shown to the operator.
type Notification struct {
	Time  time.Time `json:"time"`
	Level Level     `json:"level"`
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
}

func newNotification(level Level, title, body string) Notification {
	return Notification{Level: level, Title: title, Body: body, Time: time.Now().UTC()}
}

func Success(title, body string) Notification { return newNotification(LevelSuccess, title, body) }
func Warn(title, body string) Notification    { return newNotification(LevelWarn, title, body) }
func Danger(title, body string) Notification  { return newNotification(LevelDanger, title, body) }

// A Notifier delivers notifications. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Nop discards every notification.
var Nop Notifier = Func(func(context.Context, Notification) error { return nil })

// Multi fans a notification out to every notifier. Delivery continues past failures and
// the failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier that holds a connection.
func (m Multi) Close() error {
	var errs []error
	for _, notifier := range m {
		if c, ok := notifier.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to a zap logger at a level matching theirs.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	fields := []zap.Field{zap.String("title", n.Title)}
	if n.Body != "" {
		fields = append(fields, zap.String("body", n.Body))
	}

	switch n.Level {
	case LevelDanger:
		l.logger.Error("notification", fields...)
	case LevelWarn:
		l.logger.Warn("notification", fields...)
	default:
		l.logger.Info("notification", fields...)
	}
	return nil
}
