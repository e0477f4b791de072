package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/application"
	"telegram-pix-subscription/internal/config"
	"telegram-pix-subscription/internal/domain/ports/adapter"
)

// Ensure interface compliance
var (
	_ adapter.Notifier       = (*RealBotAdapter)(nil)
	_ adapter.AccessEnforcer = (*RealBotAdapter)(nil)
)

// RealBotAdapter talks to Telegram with tgbotapi: it delivers notifications,
// enforces group access, and serves the purchase dialogue with concurrent
// polling workers.
type RealBotAdapter struct {
	bot    *tgbotapi.BotAPI
	cfg    *config.BotConfig
	facade *application.BotFacade

	updateWorkers int
	cancelPolling context.CancelFunc
	log           *zerolog.Logger
}

func NewRealBotAdapter(cfg *config.BotConfig, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	botLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealBotAdapter{
		bot:           bot,
		cfg:           cfg,
		updateWorkers: workers,
		log:           &botLog,
	}, nil
}

// SetFacade wires the purchase surface. The facade needs the adapter (as
// Notifier) before the adapter can poll, hence the late binding.
func (r *RealBotAdapter) SetFacade(f *application.BotFacade) { r.facade = f }

// SendMessage implements adapter.Notifier.
func (r *RealBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendDocument implements adapter.Notifier. Used for the PIX copy-paste code,
// which survives as a .txt attachment where inline markup would break.
func (r *RealBotAdapter) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: content})
	doc.Caption = caption
	_, err := r.bot.Send(doc)
	return err
}

// GrantAccess implements adapter.AccessEnforcer: unban (covers returning
// members) and hand over the invite link.
func (r *RealBotAdapter) GrantAccess(ctx context.Context, userID, chatID int64) error {
	if r.cfg.GroupID != 0 {
		unban := tgbotapi.UnbanChatMemberConfig{
			ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: r.cfg.GroupID, UserID: userID},
			OnlyIfBanned:     true,
		}
		if _, err := r.bot.Request(unban); err != nil {
			r.log.Warn().Err(err).Int64("user_id", userID).Msg("unban before grant failed")
		}
	}
	if r.cfg.GroupInviteLink != "" && chatID != 0 {
		return r.SendMessage(ctx, chatID, "🔗 Entre no grupo: "+r.cfg.GroupInviteLink)
	}
	return nil
}

// RevokeAccess implements adapter.AccessEnforcer by kicking the user from the
// protected group.
func (r *RealBotAdapter) RevokeAccess(ctx context.Context, userID int64) error {
	if r.cfg.GroupID == 0 {
		return nil
	}
	kick := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: r.cfg.GroupID, UserID: userID},
	}
	_, err := r.bot.Request(kick)
	return err
}

// StartPolling processes updates until ctx is cancelled.
func (r *RealBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade not set")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (r *RealBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	switch {
	case update.Message.IsCommand():
		switch update.Message.Command() {
		case "start":
			reply, err := r.facade.StartOrRenew(ctx, userID, chatID)
			if err != nil {
				return r.SendMessage(ctx, chatID, "❌ Algo deu errado. Tente novamente.")
			}
			return r.SendMessage(ctx, chatID, reply)
		case "status":
			reply, err := r.facade.Status(ctx, userID, chatID)
			if err != nil {
				return r.SendMessage(ctx, chatID, "❌ Algo deu errado. Tente novamente.")
			}
			return r.SendMessage(ctx, chatID, reply)
		case "verificar":
			reply, err := r.facade.CheckMyPayment(ctx, userID)
			if err != nil {
				return r.SendMessage(ctx, chatID, "❌ Algo deu errado. Tente novamente.")
			}
			return r.SendMessage(ctx, chatID, reply)
		}
		return nil

	case isMenuChoice(text):
		_ = r.SendMessage(ctx, chatID, "⏳ Gerando seu PIX...")
		result, err := r.facade.BuyByMenuIndex(ctx, userID, chatID, mustAtoi(text))
		if err != nil {
			return r.SendMessage(ctx, chatID, "❌ Erro ao gerar Pix. Tente novamente.")
		}
		if err := r.SendMessage(ctx, chatID, result.Text); err != nil {
			return err
		}
		// The copy-paste payload always ships as a file so the client can
		// copy it whole.
		return r.SendDocument(ctx, chatID, "pix_copia_e_cola.txt", []byte(result.QRPayload), "📄 PIX Copia e Cola (arquivo)")
	}
	return nil
}

func isMenuChoice(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 9
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
