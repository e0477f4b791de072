package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/ports/adapter"
)

var (
	_ adapter.Notifier       = (*NoopBotAdapter)(nil)
	_ adapter.AccessEnforcer = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter logs instead of talking to Telegram. Used in dev mode and in
// tests where no bot token is available.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &l}
}

func (n *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("noop send message")
	return nil
}

func (n *NoopBotAdapter) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error {
	n.log.Info().Int64("chat_id", chatID).Str("filename", filename).Int("bytes", len(content)).Msg("noop send document")
	return nil
}

func (n *NoopBotAdapter) GrantAccess(ctx context.Context, userID, chatID int64) error {
	n.log.Info().Int64("user_id", userID).Int64("chat_id", chatID).Msg("noop grant access")
	return nil
}

func (n *NoopBotAdapter) RevokeAccess(ctx context.Context, userID int64) error {
	n.log.Info().Int64("user_id", userID).Msg("noop revoke access")
	return nil
}
