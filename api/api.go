// Package api exposes the dashboard's HTTP surface: token issuance,
// session establishment, cleanup, shop provisioning, and review
// moderation.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/trusthive/trusthive/auth"
	"github.com/trusthive/trusthive/config"
	"github.com/trusthive/trusthive/storage"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	repo    storage.Repository
	tokens  *auth.TokenService
	hmac    *auth.HMACAuthenticator
	sso     *auth.SessionCodec
	jwt     *auth.JWTCodec
	sweeper *auth.Sweeper
	sites   siteVerifier

	production bool
	audit      *auditLogger
	now        func() time.Time
}

// siteVerifier abstracts the outbound WordPress verification call so
// tests can point it at a local server.
type siteVerifier interface {
	Verify(ctx context.Context, siteOrigin, token string) (*auth.SiteIdentity, error)
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithSiteVerifier replaces the WordPress site verifier. Test hook.
func WithSiteVerifier(v siteVerifier) Option {
	return func(a *API) {
		a.sites = v
	}
}

// WithClock overrides the clock used by the API and every auth
// component it constructs. Test hook.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

// New creates a new API instance over the given repository and
// configuration.
func New(repo storage.Repository, cfg *config.Config, opts ...Option) *API {
	a := &API{
		repo:       repo,
		production: cfg.Production(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.tokens = auth.NewTokenService(repo).WithClock(a.now)
	a.hmac = auth.NewHMACAuthenticator(repo, cfg.HMACMaxAge()).WithClock(a.now)
	a.sso = auth.NewSessionCodec(repo).WithClock(a.now)
	a.jwt = auth.NewJWTCodec(cfg.JWTSecret).WithClock(a.now)
	a.sweeper = auth.NewSweeper(repo).WithClock(a.now)
	if a.sites == nil {
		a.sites = auth.NewSiteVerifier()
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Sweeper exposes the cleanup sweeper for scheduled jobs.
func (a *API) Sweeper() *auth.Sweeper {
	return a.sweeper
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Post("/register", a.RegisterShop)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/generate-token", a.GenerateToken)
		r.Post("/session", a.SessionBootstrap)
		r.Get("/session-redirect", a.SessionRedirect)
		r.Get("/wp-login", a.WPLogin)
		r.Post("/cleanup-tokens", a.CleanupTokens)
		r.Get("/cleanup-tokens", a.CleanupTokens)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Post("/", a.SubmitReview)
		r.Get("/", a.ListReviews)
		r.Post("/{reviewID}/action", a.ReviewAction)
	})

	return r
}
