package adapter

import "context"

// Notifier delivers user-facing messages. Failures are logged by callers and
// never roll back a committed state transition.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error
}

// AccessEnforcer grants or revokes the protected group membership. It is an
// external collaborator: the core invokes it after committing a transition
// and treats errors as best-effort.
type AccessEnforcer interface {
	GrantAccess(ctx context.Context, userID, chatID int64) error
	RevokeAccess(ctx context.Context, userID int64) error
}
