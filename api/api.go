// Package api exposes the blog over HTTP: session authentication, article
// authoring, the admin tools, taxonomy and site settings.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/phantom/auth"
	"github.com/jmcleod/phantom/blog"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	auth   *auth.Service
	store  *blog.Store
	themes *blog.ThemeStore
	audit  *auditLogger
	logger *slog.Logger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for request errors and audit
// events. If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// New creates a new API instance.
func New(svc *auth.Service, store *blog.Store, themes *blog.ThemeStore, opts ...Option) *API {
	a := &API{
		auth:   svc,
		store:  store,
		themes: themes,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.audit = newAuditLogger(a.logger)
	a.logger = a.logger.With("component", "api")
	return a
}

// Router returns a chi.Router with all API routes. It is meant to be
// mounted at /api.
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

	r.Post("/auth/login", a.Login)
	r.Post("/auth/logout", a.Logout)

	r.Get("/articles", a.ListArticles)
	r.Get("/articles/{id}", a.GetArticle)
	r.Get("/tags", a.ListTags)
	r.Get("/series", a.ListSeries)
	r.Get("/settings/site", a.GetSiteSettings)

	// Everything below requires a session.
	r.Group(func(r chi.Router) {
		r.Use(a.RequireAuth)

		r.Get("/auth/me", a.Me)
		r.Post("/auth/totp/setup", a.SetupTOTP)
		r.Post("/auth/totp/enable", a.EnableTOTP)
		r.Post("/auth/totp/disable", a.DisableTOTP)
		r.Post("/auth/change-password", a.ChangePassword)

		r.Post("/articles/create", a.CreateArticle)
		r.Put("/articles/{id}", a.UpdateArticle)
		r.Delete("/articles/{id}", a.DeleteArticle)

		r.Get("/admin/articles", a.ListAuthorArticles)
		r.Get("/admin/article", a.GetAuthorArticle)
		r.Get("/admin/recycle-bin", a.ListRecycleBin)
		r.Get("/admin/articles/{id}/history", a.ArticleHistory)
		r.Post("/admin/articles/restore", a.RestoreArticle)
		r.Post("/admin/articles/cleanup", a.CleanupRecycleBin)
		r.Post("/admin/articles/duplicate", a.DuplicateArticle)
		r.Post("/admin/articles/download", a.DownloadArticles)
		r.Post("/admin/articles/upload", a.UploadArticles)

		r.Post("/series/create", a.CreateSeries)
		r.Post("/settings/site", a.UpdateSiteSettings)
		r.Get("/settings/theme", a.GetTheme)
		r.Post("/settings/theme", a.UpdateTheme)
	})

	return r
}
