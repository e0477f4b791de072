package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/infra/metrics"
)

// MercadoPagoGateway implements adapter.PaymentGateway using direct HTTP
// calls against the /v1/payments API with the PIX payment method.
type MercadoPagoGateway struct {
	accessToken string
	webhookURL  string
	baseURL     string
	client      *http.Client
}

func NewMercadoPagoGateway(accessToken, webhookURL string, timeout time.Duration) *MercadoPagoGateway {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &MercadoPagoGateway{
		accessToken: accessToken,
		webhookURL:  webhookURL,
		baseURL:     "https://api.mercadopago.com",
		client:      &http.Client{Timeout: timeout},
	}
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

// mpPayment mirrors the subset of the provider payment resource we read.
type mpPayment struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	TransactionAmount  float64     `json:"transaction_amount"`
	ExternalReference  string      `json:"external_reference"`
	DateApproved       string      `json:"date_approved"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode    string `json:"qr_code"`
			TicketURL string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (p *mpPayment) toCharge() *adapter.Charge {
	c := &adapter.Charge{
		ID:          p.ID.String(),
		Status:      p.Status,
		AmountCents: int64(p.TransactionAmount*100 + 0.5),
		ExternalRef: p.ExternalReference,
		QRPayload:   p.PointOfInteraction.TransactionData.QRCode,
		TicketURL:   p.PointOfInteraction.TransactionData.TicketURL,
	}
	if p.DateApproved != "" {
		if t, err := time.Parse(time.RFC3339, p.DateApproved); err == nil {
			utc := t.UTC()
			c.ApprovedAt = &utc
		}
	}
	return c
}

// CreatePayment opens a PIX charge. The idempotency key guards against
// double-issuing when our own request is retried.
func (g *MercadoPagoGateway) CreatePayment(ctx context.Context, req adapter.CreateChargeRequest) (*adapter.Charge, error) {
	payload := map[string]interface{}{
		"transaction_amount": float64(req.AmountCents) / 100,
		"description":        req.Description,
		"payment_method_id":  "pix",
		"external_reference": req.ExternalRef,
		"payer": map[string]string{
			"email": req.PayerEmail,
		},
	}
	if g.webhookURL != "" {
		payload["notification_url"] = g.webhookURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create charge request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	metrics.ObserveGatewayLatency("create", err == nil, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("mercadopago create: status %d, body: %s", resp.StatusCode, truncate(raw, 512))
	}

	var mp mpPayment
	if err := json.Unmarshal(raw, &mp); err != nil {
		return nil, fmt.Errorf("unmarshal charge response: %w, body: %s", err, truncate(raw, 512))
	}
	if mp.ID.String() == "" || mp.PointOfInteraction.TransactionData.QRCode == "" {
		return nil, fmt.Errorf("mercadopago create: unexpected response shape: %s", truncate(raw, 512))
	}
	return mp.toCharge(), nil
}

// GetPayment fetches the authoritative charge state by provider id.
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, paymentID string) (*adapter.Charge, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	metrics.ObserveGatewayLatency("get", err == nil, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGatewayUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var mp mpPayment
	if err := json.Unmarshal(raw, &mp); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w, body: %s", err, truncate(raw, 512))
	}
	return mp.toCharge(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "... (" + strconv.Itoa(len(b)) + " bytes)"
}
