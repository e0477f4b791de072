package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/usecase"
)

// BotFacade composes usecases into high-level bot replies.
// Keep the facade methods returning strings so the Telegram adapter just
// forwards them to the chat.
type BotFacade struct {
	PurchaseUC usecase.PurchaseUseCase
	Plans      *model.PlanTable
}

// BuyResult carries both the chat text and the raw PIX payload; the adapter
// ships the payload as a .txt attachment.
type BuyResult struct {
	Text      string
	QRPayload string
}

func NewBotFacade(purchaseUC usecase.PurchaseUseCase, plans *model.PlanTable) *BotFacade {
	return &BotFacade{PurchaseUC: purchaseUC, Plans: plans}
}

// StartOrRenew returns the menu matching the user's entitlement state: the
// discounted table while the renewal offer is open, the initial one otherwise.
func (b *BotFacade) StartOrRenew(ctx context.Context, userID, chatID int64) (string, error) {
	sub, menu, err := b.PurchaseUC.StartOrRenew(ctx, userID, chatID)
	if err != nil {
		return "", fmt.Errorf("start or renew: %w", err)
	}
	return usecase.PlanMenuMessage(menu, sub.InRenewalOffer(time.Now().UTC())), nil
}

// Status renders the user's current entitlement.
func (b *BotFacade) Status(ctx context.Context, userID, chatID int64) (string, error) {
	sub, _, err := b.PurchaseUC.StartOrRenew(ctx, userID, chatID)
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	switch sub.Status {
	case model.SubscriptionStatusActive, model.SubscriptionStatusRenewalWindow:
		if sub.ExpiresAt != nil {
			return fmt.Sprintf("✅ Assinatura ativa.\n⏳ Válida até %s.", sub.ExpiresAt.UTC().Format("02/01/2006 15:04")+" UTC"), nil
		}
		return "✅ Assinatura ativa.", nil
	case model.SubscriptionStatusPending:
		return "⏳ Pagamento pendente. Assim que o PIX for confirmado você recebe o acesso aqui.", nil
	case model.SubscriptionStatusExpired:
		return "⛔ Sua assinatura expirou. Use /start para assinar novamente.", nil
	default:
		return "Você ainda não tem assinatura. Use /start para ver os planos.", nil
	}
}

// BuyByMenuIndex resolves a 1-based menu choice against the menu the user was
// last shown and issues the PIX charge.
func (b *BotFacade) BuyByMenuIndex(ctx context.Context, userID, chatID int64, index int) (*BuyResult, error) {
	_, menu, err := b.PurchaseUC.StartOrRenew(ctx, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("resolve menu: %w", err)
	}
	if index < 1 || index > len(menu) {
		return nil, domain.ErrUnknownPlan
	}
	payment, plan, err := b.PurchaseUC.RequestPayment(ctx, userID, chatID, menu[index-1].Code)
	if err != nil {
		return nil, fmt.Errorf("request payment: %w", err)
	}
	return &BuyResult{
		Text:      usecase.PixGeneratedMessage(plan, payment.TicketURL),
		QRPayload: payment.QRPayload,
	}, nil
}

// CheckPayment is the manual poll command; it routes through the same
// reconciliation path as the webhook.
func (b *BotFacade) CheckPayment(ctx context.Context, paymentID string) (usecase.Outcome, error) {
	return b.PurchaseUC.CheckPayment(ctx, paymentID)
}

// CheckMyPayment polls the user's latest charge and renders the outcome as
// chat text. A user with no charge at all gets pointed back at the menu.
func (b *BotFacade) CheckMyPayment(ctx context.Context, userID int64) (string, error) {
	out, _, err := b.PurchaseUC.CheckLatestPayment(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "🤔 Não encontrei um pagamento para verificar. Gere um PIX com /start.", nil
		}
		return "", fmt.Errorf("check latest payment: %w", err)
	}
	return usecase.CheckResultMessage(out), nil
}
