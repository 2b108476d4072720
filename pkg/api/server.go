package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/audio"
	"github.com/mixmentor/mixmentor/pkg/chat"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/middleware"
	"github.com/mixmentor/mixmentor/pkg/observability"
	"github.com/mixmentor/mixmentor/pkg/pricing"
	"github.com/mixmentor/mixmentor/pkg/usage"
)

// maxRequestBytes bounds any request body: base64 inflates the 50MB audio
// cap by a third, plus JSON framing
const maxRequestBytes = 72 << 20

// Authenticator is the slice of the OIDC login flow the handlers call;
// tests swap it out.
type Authenticator interface {
	LoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*accounts.User, string, error)
}

// BillingService is the slice of the billing service the handlers call
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID int64, tier pricing.Tier) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

// Deps carries every dependency the server needs. All fields except the
// rate limiters are required.
type Deps struct {
	Users    accounts.Store
	Sessions *accounts.SessionStore
	Auth     Authenticator
	Chat     *chat.Service
	Audio    *audio.Service
	Ledger   usage.Ledger
	Catalog  *pricing.Catalog
	Billing  BillingService
	Metrics  *observability.Metrics
	Logger   *observability.Logger

	// SecureCookies marks session cookies Secure; off for local development
	SecureCookies bool
	// SessionTTL bounds the session cookie's max age
	SessionTTL time.Duration
	// LoginRedirectURL is where the browser lands after a completed login
	LoginRedirectURL string
	// AllowedOrigins enables CORS for browser clients served elsewhere
	AllowedOrigins []string

	// RateLimiter guards all API routes; optional
	RateLimiter *middleware.RateLimitMiddleware
	// CompletionLimiter guards the model-backed routes; optional
	CompletionLimiter *middleware.DistributedRateLimitMiddleware
}

// Server is the HTTP API
type Server struct {
	deps Deps
}

// NewServer creates the API server
func NewServer(deps Deps) *Server {
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = accounts.DefaultSessionTTL
	}
	if deps.LoginRedirectURL == "" {
		deps.LoginRedirectURL = "/"
	}
	return &Server{deps: deps}
}

// Routes builds the router with the middleware chain applied.
//
// The webhook route is registered before the session middleware runs so
// Stripe deliveries are never challenged for a cookie, and its body reaches
// the handler untouched.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.RequestLogger(s.deps.Logger))
	r.Use(middleware.Recovery(s.deps.Logger))
	// Uploads arrive base64 encoded, so the body cap sits above the
	// decoded 50MB audio limit
	r.Use(httputil.MaxBytesMiddleware(maxRequestBytes))
	if len(s.deps.AllowedOrigins) > 0 {
		r.Use(httputil.CORSMiddleware(s.deps.AllowedOrigins))
	}
	if s.deps.Metrics != nil {
		r.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}
	if s.deps.RateLimiter != nil {
		r.Use(s.deps.RateLimiter.Handler)
	}

	// Public routes: login flow, webhook, tier table
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/callback", s.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/api/billing/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/api/tiers", s.handleListTiers).Methods(http.MethodGet)

	// Everything else requires a session
	sessions := middleware.NewSessionMiddleware(s.deps.Sessions, s.deps.Users, s.deps.Logger, false)
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(sessions.Handler)

	protected.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	protected.HandleFunc("/conversations", s.handleCreateConversation).Methods(http.MethodPost)
	protected.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{id:[0-9]+}", s.handleGetConversation).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{id:[0-9]+}", s.handleDeleteConversation).Methods(http.MethodDelete)

	protected.HandleFunc("/audio", s.handleUploadAudio).Methods(http.MethodPost)
	protected.HandleFunc("/audio", s.handleListAudio).Methods(http.MethodGet)

	protected.HandleFunc("/usage", s.handleUsage).Methods(http.MethodGet)
	protected.HandleFunc("/billing/checkout", s.handleCheckout).Methods(http.MethodPost)

	// Admin-only: support tooling reads any account's usage meters
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/users/{id:[0-9]+}/usage", s.handleAdminUserUsage).Methods(http.MethodGet)

	// Model-backed routes burn real money; they get the stricter shared limiter
	sendMessage := http.Handler(http.HandlerFunc(s.handleSendMessage))
	analyze := http.Handler(http.HandlerFunc(s.handleAnalyzeAudio))
	if s.deps.CompletionLimiter != nil {
		sendMessage = s.deps.CompletionLimiter.Handler(sendMessage)
		analyze = s.deps.CompletionLimiter.Handler(analyze)
	}
	protected.Handle("/conversations/{id:[0-9]+}/messages", sendMessage).Methods(http.MethodPost)
	protected.Handle("/audio/analyze", analyze).Methods(http.MethodPost)

	return r
}
