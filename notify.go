package auth

import "context"

// NotificationDispatcher delivers out-of-band messages such as OTP
// codes. The engine awaits the result but a delivery failure degrades
// the operation instead of aborting it.
type NotificationDispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// NotificationDispatcherFunc adapts a function to the
// NotificationDispatcher interface.
type NotificationDispatcherFunc func(ctx context.Context, recipient, subject, body string) error

// Send implements NotificationDispatcher.
func (f NotificationDispatcherFunc) Send(ctx context.Context, recipient, subject, body string) error {
	if f == nil {
		return nil
	}
	return f(ctx, recipient, subject, body)
}

type noopDispatcher struct{}

func (noopDispatcher) Send(context.Context, string, string, string) error {
	return nil
}

func normalizeDispatcher(d NotificationDispatcher) NotificationDispatcher {
	if d == nil {
		return noopDispatcher{}
	}
	return d
}

// NewLogDispatcher logs messages instead of delivering them. Useful
// for development and examples.
func NewLogDispatcher(logger Logger) NotificationDispatcher {
	if logger == nil {
		logger = defLogger{}
	}
	return NotificationDispatcherFunc(func(_ context.Context, recipient, subject, body string) error {
		logger.Info("notification dispatched", "to", recipient, "subject", subject, "body", body)
		return nil
	})
}
