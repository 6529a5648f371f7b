package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/billing"
	"github.com/brightharbor/homecare-platform/internal/clients"
	httpmiddleware "github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/inquiries"
	"github.com/brightharbor/homecare-platform/internal/lifecycle"
	"github.com/brightharbor/homecare-platform/internal/messaging"
	"github.com/brightharbor/homecare-platform/internal/observability/metrics"
	"github.com/brightharbor/homecare-platform/internal/phicrypto"
	"github.com/brightharbor/homecare-platform/internal/security"
	"github.com/brightharbor/homecare-platform/internal/visits"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	InquiriesHandler *inquiries.Handler
	ClientsHandler   *clients.Handler
	VisitsHandler    *visits.Handler
	AuditHandler     *audit.Handler
	LifecycleHandler *lifecycle.Handler
	SecurityHandler  *security.Handler
	PHIHandler       *phicrypto.Handler
	BillingHandler   *billing.Handler
	SMSWebhook       *messaging.Handler
	StripeWebhook    *billing.StripeWebhookHandler
	MetricsHandler   http.Handler
	WebhookMetrics   *metrics.WebhookMetrics

	AuthJWTSecret      string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (intake, webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)

		if cfg.InquiriesHandler != nil {
			public.With(httpmiddleware.RateLimit(1, 5)).
				Post("/inquiries", cfg.InquiriesHandler.Create)
		}
		if cfg.SMSWebhook != nil {
			public.With(httpmiddleware.RateLimit(5, 20), instrumentWebhook(cfg.WebhookMetrics, "twilio")).
				Post("/webhooks/twilio/sms", cfg.SMSWebhook.InboundSMS)
		}
		if cfg.StripeWebhook != nil {
			public.With(instrumentWebhook(cfg.WebhookMetrics, "stripe")).
				Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated routes (any signed-in role; handlers enforce finer rules)
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.Auth(cfg.AuthJWTSecret))

		if cfg.ClientsHandler != nil {
			authed.Route("/clients", func(r chi.Router) {
				r.Get("/", cfg.ClientsHandler.List)
				r.Get("/{clientID}", cfg.ClientsHandler.Get)
				r.Patch("/{clientID}/status", cfg.ClientsHandler.UpdateStatus)
				if cfg.LifecycleHandler != nil {
					r.Post("/{clientID}/erasure", cfg.LifecycleHandler.Erase)
				}
			})
		}

		if cfg.VisitsHandler != nil {
			authed.Route("/visits", func(r chi.Router) {
				r.Post("/", cfg.VisitsHandler.Schedule)
				r.Get("/{visitID}", cfg.VisitsHandler.Get)
				r.Post("/{visitID}/complete", cfg.VisitsHandler.Complete)
				r.Post("/{visitID}/notes", cfg.VisitsHandler.AddNote)
			})
		}

		if cfg.AuditHandler != nil {
			authed.Get("/audit/access", cfg.AuditHandler.AccessAudit)
		}
	})

	// Admin routes
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.Auth(cfg.AuthJWTSecret))
		admin.Use(httpmiddleware.RequireRole(httpmiddleware.RoleAdmin))

		if cfg.InquiriesHandler != nil {
			admin.Get("/inquiries", cfg.InquiriesHandler.List)
			admin.Post("/inquiries/{inquiryID}/lost", cfg.InquiriesHandler.MarkLost)
			admin.Post("/inquiries/{inquiryID}/convert", cfg.InquiriesHandler.Convert)
		}
		if cfg.LifecycleHandler != nil {
			admin.Post("/lifecycle/archive", cfg.LifecycleHandler.Archive)
		}
		if cfg.SecurityHandler != nil {
			admin.Post("/security/scan", cfg.SecurityHandler.Scan)
			admin.Get("/security/incidents", cfg.SecurityHandler.ListIncidents)
			admin.Post("/security/incidents/{incidentID}/resolve", cfg.SecurityHandler.ResolveIncident)
		}
		if cfg.BillingHandler != nil {
			admin.Post("/invoices", cfg.BillingHandler.CreateInvoice)
			admin.Post("/invoices/{invoiceID}/payments", cfg.BillingHandler.CreatePayment)
		}
		if cfg.PHIHandler != nil {
			admin.Post("/phi/encrypt", cfg.PHIHandler.Encrypt)
			admin.Post("/phi/decrypt", cfg.PHIHandler.Decrypt)
		}
	})

	return r
}

// instrumentWebhook counts inbound webhook requests by provider and outcome.
func instrumentWebhook(m *metrics.WebhookMetrics, provider string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := "ok"
			if ww.Status() >= 400 {
				status = "rejected"
			}
			m.ObserveInbound(provider, status)
		})
	}
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
