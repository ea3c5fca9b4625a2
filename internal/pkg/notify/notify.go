package notify

import "context"

// Notifier sends account-lifecycle mail.
type Notifier interface {
	// SendWelcome greets a freshly registered user. Implementations should
	// be best-effort: registration must not fail because mail did.
	SendWelcome(ctx context.Context, toEmail string, fullName string) error
}
