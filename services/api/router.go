package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	static, err := a.staticHandler()
	if err != nil {
		return nil, err
	}

	allowed := a.config.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(a.config.RequestTimeout))
		r.Use(httprate.LimitByIP(a.config.RateLimit, time.Minute))

		r.Get("/health", a.handleHealth)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/config", a.handleGetConfig)
			r.Put("/config", a.handlePutConfig)
			r.Get("/ks", a.handleKickstart)
			r.Get("/machines/export", a.handleExport)
			r.Get("/templates", a.handleListTemplates)
			r.Post("/templates", a.handleUploadTemplate)
			r.Get("/templates/{name}", a.handleGetTemplate)
		})
	})

	r.Handle("/*", static)

	if a.deps.Middleware != nil {
		return a.deps.Middleware(r), nil
	}
	return r, nil
}
