package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/newsletter-gateway/internal/config"
	"github.com/newsletter-gateway/internal/transport/http/handler"
	appmiddleware "github.com/newsletter-gateway/internal/transport/http/middleware"
)

// Deps holds the collaborators the router exposes over HTTP.
type Deps struct {
	Subscriptions handler.Dispatcher
	WireChannel   http.HandlerFunc
}

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

	// 5 requests/second, burst of 10. The command endpoint is public.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	newsletterH := handler.NewNewsletterHandler(deps.Subscriptions)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/newsletter", newsletterH.Command)
		r.Get("/channel", deps.WireChannel)
	})

	return r
}
