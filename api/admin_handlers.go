package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/phantom/blog"
)

func authorFilter(status, seriesID, search string) blog.AuthorFilter {
	return blog.AuthorFilter{
		Status:   blog.Status(status),
		SeriesID: seriesID,
		Search:   search,
	}
}

// ListAuthorArticles handles GET /admin/articles.
func (a *API) ListAuthorArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	articles, err := a.store.ListAuthorArticles(r.Context(), identity(r).UserID,
		authorFilter(q.Get("status"), q.Get("seriesId"), q.Get("search")))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	items, meta := page(r, articles)
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Pagination: meta})
}

// GetAuthorArticle handles GET /admin/article?id=.
func (a *API) GetAuthorArticle(w http.ResponseWriter, r *http.Request) {
	articleID := r.URL.Query().Get("id")
	if articleID == "" {
		writeError(w, http.StatusBadRequest, "article id is required")
		return
	}
	article, err := a.store.GetAuthorArticle(r.Context(), identity(r).UserID, articleID)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleResponse{Article: article})
}

// ListRecycleBin handles GET /admin/recycle-bin.
func (a *API) ListRecycleBin(w http.ResponseWriter, r *http.Request) {
	articles, err := a.store.ListTrashed(r.Context(), identity(r).UserID)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	items, meta := page(r, articles)
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Pagination: meta})
}

// ArticleHistory handles GET /admin/articles/{id}/history.
func (a *API) ArticleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := a.store.History(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: history})
}

// RestoreArticle handles POST /admin/articles/restore.
func (a *API) RestoreArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ArticleIDRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	id := identity(r)
	article, err := a.store.RestoreArticle(r.Context(), id.UserID, req.ArticleID)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditArticleRestored, r, id.UserID, slog.String("article_id", article.ID))
	writeJSON(w, http.StatusOK, ArticleResponse{Success: true, Article: article})
}

// CleanupRecycleBin handles POST /admin/articles/cleanup.
func (a *API) CleanupRecycleBin(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	n, err := a.store.PurgeTrashed(r.Context(), id.UserID)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditRecycleBinPurged, r, id.UserID, slog.Int64("count", n))
	writeJSON(w, http.StatusOK, CleanupResponse{Success: true, DeletedCount: n})
}

// DuplicateArticle handles POST /admin/articles/duplicate.
func (a *API) DuplicateArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ArticleIDRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	id := identity(r)
	article, err := a.store.DuplicateArticle(r.Context(), id.UserID, req.ArticleID)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditArticleDuplicated, r, id.UserID,
		slog.String("source_id", req.ArticleID), slog.String("article_id", article.ID))
	writeJSON(w, http.StatusOK, ArticleResponse{Success: true, Article: article})
}

// DownloadArticles handles POST /admin/articles/download. The body holds
// the same filters as the admin list and may be empty.
func (a *API) DownloadArticles(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOptionalJSON[DownloadRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	id := identity(r)
	files, err := a.store.ExportArticles(r.Context(), id.UserID, authorFilter(req.Status, req.SeriesID, req.Search))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditArticlesExported, r, id.UserID, slog.Int("count", len(files)))
	writeJSON(w, http.StatusOK, DownloadResponse{
		Articles: files,
		Filename: fmt.Sprintf("phantom-articles-%d.json", a.audit.now().UnixMilli()),
		Count:    len(files),
	})
}

// UploadArticles handles POST /admin/articles/upload. Items that fail are
// skipped and reported; the rest are imported.
func (a *API) UploadArticles(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[UploadRequest](w, r, maxUploadBodySize)
	if !ok {
		return
	}
	if req.Articles == nil {
		writeError(w, http.StatusBadRequest, "invalid articles data")
		return
	}

	var problems []string
	inputs := make([]blog.ArticleInput, 0, len(req.Articles))
	for _, item := range req.Articles {
		if item.Title == "" && item.Filename != "" {
			in, err := blog.ParseMarkdown(item.Content)
			if err != nil {
				problems = append(problems, fmt.Sprintf("Failed to import %q: %v", item.Filename, err))
				continue
			}
			inputs = append(inputs, in)
			continue
		}
		inputs = append(inputs, blog.ArticleInput{
			Title:     item.Title,
			Content:   item.Content,
			Tags:      item.Tags,
			CustomURL: item.CustomURL,
			Published: bool(item.Published),
			SeriesID:  item.SeriesID,
		})
	}

	id := identity(r)
	count, importProblems := a.store.ImportArticles(r.Context(), id.UserID, inputs)
	problems = append(problems, importProblems...)
	a.audit.logEvent(AuditArticlesImported, r, id.UserID,
		slog.Int("count", count), slog.Int("failed", len(problems)))
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Count: count, Errors: problems})
}
