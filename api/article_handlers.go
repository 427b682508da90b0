package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/phantom/blog"
)

// ListArticles handles GET /articles.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	articles, err := a.store.ListPublished(r.Context(), blog.PublicFilter{
		Search: q.Get("search"),
		Tag:    q.Get("tag"),
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	items, meta := page(r, articles)
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Pagination: meta})
}

// GetArticle handles GET /articles/{id}. The id may also be a custom URL.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := a.store.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleResponse{Article: article})
}

// CreateArticle handles POST /articles/create.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ArticleRequest](w, r, maxArticleBodySize)
	if !ok {
		return
	}
	id := identity(r)
	article, err := a.store.CreateArticle(r.Context(), id.UserID, req.input())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditArticleCreated, r, id.UserID, slog.String("article_id", article.ID))
	writeJSON(w, http.StatusOK, ArticleResponse{Article: article})
}

// UpdateArticle handles PUT /articles/{id}.
func (a *API) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ArticleRequest](w, r, maxArticleBodySize)
	if !ok {
		return
	}
	id := identity(r)
	articleID := chi.URLParam(r, "id")
	article, err := a.store.UpdateArticle(r.Context(), id.UserID, articleID, req.update())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditArticleUpdated, r, id.UserID, slog.String("article_id", articleID))
	writeJSON(w, http.StatusOK, ArticleResponse{Article: article})
}

// DeleteArticle handles DELETE /articles/{id}. The article moves to the
// recycle bin.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	articleID := chi.URLParam(r, "id")
	if err := a.store.DeleteArticle(r.Context(), id.UserID, articleID); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditArticleDeleted, r, id.UserID, slog.String("article_id", articleID))
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Article deleted successfully"})
}

// ListTags handles GET /tags.
func (a *API) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.store.ListTags(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// ListSeries handles GET /series.
func (a *API) ListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := a.store.ListSeries(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SeriesListResponse{Series: series})
}

// CreateSeries handles POST /series/create.
func (a *API) CreateSeries(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateSeriesRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	series, err := a.store.CreateSeries(r.Context(), blog.SeriesInput{
		Name:        req.Name,
		Description: req.Description,
		CustomURL:   req.CustomURL,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditSeriesCreated, r, identity(r).UserID, slog.String("series_id", series.ID))
	writeJSON(w, http.StatusOK, SeriesResponse{Series: series, Message: "Series created successfully"})
}
