package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-liquido/internal/app"
	"github.com/noah-isme/backend-liquido/internal/audit"
	"github.com/noah-isme/backend-liquido/internal/auth"
	"github.com/noah-isme/backend-liquido/internal/calculation"
	"github.com/noah-isme/backend-liquido/internal/config"
	"github.com/noah-isme/backend-liquido/internal/health"
	"github.com/noah-isme/backend-liquido/internal/obs"
	"github.com/noah-isme/backend-liquido/internal/ratelimit"
	"github.com/noah-isme/backend-liquido/internal/security"
	"github.com/noah-isme/backend-liquido/internal/session"
)

type routerDeps struct {
	Config      *config.Config
	Deps        *app.Dependencies
	Auth        *auth.Service
	Logger      zerolog.Logger
	HTTPMetrics *obs.HTTPMetrics
}

func newRouter(rd routerDeps) (http.Handler, error) {
	cfg := rd.Config
	deps := rd.Deps
	logger := rd.Logger

	auditSvc := &audit.Service{
		Logger:       logger.With().Str("component", "audit").Logger(),
		Enabled:      cfg.AuditEnabled,
		SamplingRate: 1,
	}
	auditRec := audit.HTTPRecorder{Service: auditSvc}
	csrf := security.CSRF{}

	authHandler := &auth.Handler{
		Service:          rd.Auth,
		Audit:            auditSvc,
		CSRF:             csrf,
		AccessCookieName: cfg.AccessCookieName,
		CookieDomain:     cfg.CookieDomain,
		CookieSecure:     cfg.CookieSecure,
		CookieSameSite:   cfg.CookieSameSite,
	}
	authMiddleware := auth.Middleware{Service: rd.Auth, AccessCookie: cfg.AccessCookieName}

	loginLimit, err := ratelimit.PerIP(deps.LoginStore, cfg.LoginRateLimit, "login:")
	if err != nil {
		return nil, err
	}
	inputLimit := ratelimit.Handler{
		Limiter: deps.InputLimiter,
		Config: ratelimit.Config{
			Key:    session.InputRateKey,
			Window: cfg.FormInputRateWindow,
			Max:    cfg.FormInputRateMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("form input rate limiter")
		},
	}

	calcHandler := calculation.Handler{Svc: calculation.Service{Source: obs.SourceAPI}}
	formHandler := session.Handler{Svc: session.NewService(deps.Sessions, deps.Locker, cfg.FormSessionTTL, cfg.FormLockTTL)}
	healthHandler := health.Handler{Probes: deps.Probes}

	trusted, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(security.RealIP{Trusted: trusted}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(obs.HTTPObs{Metrics: rd.HTTPMetrics}.Middleware)
	r.Use(obs.RouteSpanMiddleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeadersEnabled, EnableHSTS: cfg.SecurityHSTSEnabled}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.BodyLimit{Max: cfg.RequestBodyMaxBytes}.Middleware)

	if rd.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit).Post("/login", authHandler.Login)
			a.With(csrf.Middleware).Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(authMiddleware.RequireAuth)
			p.Use(csrf.Middleware)

			p.Post("/calculations", calcHandler.Calculate)

			p.Route("/forms", func(f chi.Router) {
				f.With(
					deps.Idem.Middleware,
					auditRec.Middleware(audit.HTTPConfig{Action: "form.open", ResourceType: "form"}),
				).Post("/", formHandler.Open)
				f.Get("/{id}", formHandler.Get)
				f.With(inputLimit.Middleware).Post("/{id}/input", formHandler.Input)
				f.With(
					auditRec.Middleware(audit.HTTPConfig{Action: "form.close", ResourceType: "form", ResourceIDParam: "id"}),
				).Delete("/{id}", formHandler.Close)
			})
		})
	})

	return r, nil
}
