package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-push-relay/internal/application/interest"
	"github.com/go-push-relay/internal/application/registry"
	"github.com/go-push-relay/internal/application/sender"
	"github.com/go-push-relay/internal/config"
	"github.com/go-push-relay/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-push-relay/internal/infrastructure/jwt"
	s3infra "github.com/go-push-relay/internal/infrastructure/s3"
	"github.com/go-push-relay/internal/infrastructure/sns"
	"github.com/go-push-relay/internal/transport/http/handler"
	appmiddleware "github.com/go-push-relay/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	DeviceRepo   *dynamo.DeviceRepo
	InterestRepo *dynamo.InterestRepo
	S3Store      *s3infra.Store
	Sender       *sender.Service
	SMSSender    sns.SMSSender
	JWTProvider  *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to public write endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrySvc := registry.NewService(deps.DeviceRepo, cfg.MaxDevicesPerOwner)
	interestSvc := interest.NewService(deps.InterestRepo, deps.S3Store, deps.DeviceRepo, deps.Sender, deps.SMSSender)

	healthH := handler.NewHealthHandler()
	registerH := handler.NewRegisterHandler(registrySvc)
	messageH := handler.NewMessageHandler(registrySvc, deps.Sender)
	interestH := handler.NewInterestHandler(interestSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(sensitiveRL.Limit).Post("/register", registerH.Register)
			r.Get("/register", registerH.List)
			r.Post("/unregister", registerH.Unregister)

			r.Post("/messages", messageH.Send)

			r.Post("/interests", interestH.Submit)
			r.Get("/interests/{id}", interestH.Get)
			r.Get("/interests/{id}/image", interestH.Image)
		})
	})

	return r
}
