package http

import (
	"net/http"

	"github.com/credential-api/internal/application/auth"
	"github.com/credential-api/internal/application/registration"
	"github.com/credential-api/internal/application/session"
	"github.com/credential-api/internal/application/verification"
	"github.com/credential-api/internal/config"
	"github.com/credential-api/internal/transport/http/handler"
	appmiddleware "github.com/credential-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionMgr := session.NewManager(session.ManagerDeps{
		SessionRepo: deps.SessionRepo,
		AccountRepo: deps.AccountRepo,
		Signer:      deps.JWTProvider,
		RefreshTTL:  cfg.RefreshTokenTTL,
		MaxSessions: cfg.MaxSessions,
	})
	registrationSvc := registration.NewService(registration.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		TicketRepo:  deps.TicketRepo,
		Notifier:    deps.Notifier,
		TicketTTL:   cfg.TicketTTL,
	})
	verificationSvc := verification.NewService(deps.TicketRepo, deps.AccountRepo)
	authSvc := auth.NewService(auth.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		Sessions:    sessionMgr,
		Signer:      deps.JWTProvider,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(registrationSvc, verificationSvc)
	sessionH := handler.NewSessionHandler(authSvc, sessionMgr)
	keyH := handler.NewKeyHandler(deps.KeyMaterial)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Get("/keys/public", keyH.PublicKey)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/accounts/verify", accountH.Verify)
		r.With(sensitiveRL.Limit).Post("/accounts/resend-verification", accountH.ResendVerification)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.Post("/sessions/logout", sessionH.Logout)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))
			r.Post("/sessions/logout-all", sessionH.LogoutAll)
		})
	})

	return r
}
