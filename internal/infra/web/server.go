package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/infra/metrics"
	"telegram-pix-subscription/internal/infra/payment"
	"telegram-pix-subscription/internal/usecase"
)

// Enqueuer is the webhook-to-worker handoff. Satisfied by worker.Pool.
type Enqueuer interface {
	Enqueue(paymentID string) error
}

type Server struct {
	queue         Enqueuer
	statsUC       usecase.StatsUseCase
	auth          *AuthManager
	adminSecret   string
	webhookSecret string
	httpServer    *http.Server
	log           *zerolog.Logger
}

func NewServer(
	queue Enqueuer,
	statsUC usecase.StatsUseCase,
	auth *AuthManager,
	adminSecret string,
	webhookSecret string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		queue:         queue,
		statsUC:       statsUC,
		auth:          auth,
		adminSecret:   adminSecret,
		webhookSecret: webhookSecret,
		log:           &srvLog,
	}
}

// Router assembles all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Post("/payment-webhook", s.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/stats", s.handleStats)
		})
	})
	return r
}

func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleWebhook acknowledges the provider within bounded time: the body is
// parsed, the payment id queued, and 200 returned. Reconciliation happens on
// the worker pool. The provider never sees a failure for malformed pings.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		body = nil
	}

	paymentID, shape := parseWebhookBody(body)
	metrics.IncWebhook(string(shape))

	if paymentID == "" {
		s.log.Warn().Str("shape", string(shape)).Msg("webhook without payment id; ignoring")
		s.ack(w)
		return
	}

	// Signature validation is advisory only: the scheme is not stable across
	// provider product lines, so a mismatch is logged and processing goes on.
	if s.webhookSecret != "" {
		sig := r.Header.Get("x-signature")
		reqID := r.Header.Get("x-request-id")
		if !payment.VerifyWebhookSignature(s.webhookSecret, sig, reqID, paymentID) {
			s.log.Warn().Str("payment_id", paymentID).Msg("webhook signature mismatch; processing anyway")
		}
	}

	if err := s.queue.Enqueue(paymentID); err != nil {
		s.log.Error().Err(err).Str("payment_id", paymentID).Msg("webhook enqueue failed")
	}
	s.ack(w)
}

func (s *Server) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// ===== Admin API =====

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.adminSecret == "" || req.Secret != s.adminSecret {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := s.statsUC.Totals(ctx)
	if err != nil {
		http.Error(w, "Failed to get totals", http.StatusInternalServerError)
		return
	}
	week, month, year, err := s.statsUC.Revenue(ctx)
	if err != nil {
		http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
		return
	}

	response := struct {
		SubsByStatus map[model.SubscriptionStatus]int `json:"subs_by_status"`
		RevenueCents struct {
			Week  int64 `json:"week"`
			Month int64 `json:"month"`
			Year  int64 `json:"year"`
		} `json:"revenue_cents"`
	}{SubsByStatus: counts}
	response.RevenueCents.Week = week
	response.RevenueCents.Month = month
	response.RevenueCents.Year = year

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
