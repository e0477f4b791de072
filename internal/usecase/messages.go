package usecase

import (
	"fmt"
	"strings"
	"time"

	"telegram-pix-subscription/internal/domain/model"
)

// User-facing texts. The bot speaks pt-BR like its audience.

func formatCents(cents int64) string {
	return fmt.Sprintf("R$%d,%02d", cents/100, cents%100)
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format("02/01/2006 15:04") + " UTC"
}

func approvalMessage(plan *model.Plan, expiresAt time.Time) string {
	return fmt.Sprintf(
		"✅ Pagamento aprovado!\n\n📦 Plano: %s\n⏳ Válido até: %s",
		plan.Name, formatExpiry(expiresAt),
	)
}

func expiredMessage() string {
	return "⛔ Sua assinatura expirou. Para voltar, assine novamente pelo menu inicial: /start"
}

// PlanMenuMessage renders either the initial or the renewal-discount menu.
func PlanMenuMessage(plans []*model.Plan, renewal bool) string {
	var b strings.Builder
	if renewal {
		b.WriteString("🎁 MENU EXCLUSIVO DE RENOVAÇÃO (válido por 24 horas)\n\n🔥 Oferta liberada por 24 horas:\n\n")
	} else {
		b.WriteString("🔥 Bem-vindo!\n\nEscolha abaixo o plano ideal e entre imediatamente no grupo privado:\n\n")
	}
	for i, p := range plans {
		fmt.Fprintf(&b, "%d️⃣ %s — %s\n", i+1, p.Name, formatCents(p.AmountCents))
	}
	if renewal {
		b.WriteString("\n⏳ Esses valores expiram em 24 horas.")
	} else {
		b.WriteString("\nDigite apenas o número do plano desejado.")
	}
	return b.String()
}

// CheckResultMessage renders the reply to the manual poll command.
func CheckResultMessage(out Outcome) string {
	switch out.Kind {
	case OutcomeActivated:
		if out.ExpiresAt != nil {
			return fmt.Sprintf("✅ Pagamento confirmado! Acesso liberado até %s.", formatExpiry(*out.ExpiresAt))
		}
		return "✅ Pagamento confirmado! Acesso liberado."
	case OutcomeAlreadyApplied:
		return "✅ Esse pagamento já foi processado. Use /status para ver sua assinatura."
	case OutcomeDenied:
		return "❌ O pagamento foi recusado ou cancelado. Gere um novo PIX com /start."
	case OutcomePending:
		return "⏳ Ainda não recebemos a confirmação do PIX. Tente novamente em alguns instantes."
	case OutcomeLocked:
		return "⏳ Estamos verificando seu pagamento agora mesmo. Aguarde alguns segundos."
	default:
		return "🤔 Não encontrei um pagamento para verificar. Gere um PIX com /start."
	}
}

// PixGeneratedMessage confirms charge creation and points at the QR link.
func PixGeneratedMessage(plan *model.Plan, ticketURL string) string {
	msg := fmt.Sprintf(
		"✅ PIX GERADO COM SUCESSO!\n\n📦 Plano: %s\n💰 Valor: %s\n\n📋 Copia e cola: (enviei também em arquivo .txt)\n",
		plan.Name, formatCents(plan.AmountCents),
	)
	if ticketURL != "" {
		msg += "\n🔗 Link do QR: " + ticketURL + "\n"
	}
	msg += "\n🔎 Depois de pagar, envie /verificar para liberar o acesso na hora."
	return msg
}
