package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmcleod/phantom/auth"
	"github.com/jmcleod/phantom/blog"
)

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	TOTPToken string `json:"totpToken,omitempty"`
}

// LoginResponse is returned from POST /auth/login. When RequireTOTP is set
// no session was created.
type LoginResponse struct {
	Success     bool       `json:"success,omitempty"`
	RequireTOTP bool       `json:"requireTotp,omitempty"`
	User        *auth.User `json:"user,omitempty"`
}

// UserInfo describes the signed-in account.
type UserInfo struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	TOTPEnabled bool      `json:"totpEnabled"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MeResponse is returned from GET /auth/me.
type MeResponse struct {
	User UserInfo `json:"user"`
}

// TOTPSetupResponse is returned from POST /auth/totp/setup.
type TOTPSetupResponse struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qrCode"`
	OtpauthURL string `json:"otpauthUrl"`
}

// TOTPEnableRequest is the JSON body for POST /auth/totp/enable.
type TOTPEnableRequest struct {
	Token string `json:"token"`
}

// ChangePasswordRequest is the JSON body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SuccessResponse acknowledges an operation with no other result.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// flexBool accepts both JSON booleans and the strings "true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		*b = t == "true"
	case nil:
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// ArticleRequest is the JSON body for POST /articles/create and
// PUT /articles/{id}. Omitted fields are left unchanged on update.
type ArticleRequest struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	Tags      []string  `json:"tags"`
	CustomURL *string   `json:"customUrl"`
	Published *flexBool `json:"published"`
	SeriesID  *string   `json:"seriesId"`
}

func (req ArticleRequest) input() blog.ArticleInput {
	in := blog.ArticleInput{
		Tags:      req.Tags,
		CustomURL: req.CustomURL,
		SeriesID:  req.SeriesID,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Published != nil {
		in.Published = bool(*req.Published)
	}
	return in
}

func (req ArticleRequest) update() blog.ArticleUpdate {
	up := blog.ArticleUpdate{
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		CustomURL: req.CustomURL,
		SeriesID:  req.SeriesID,
	}
	if req.Published != nil {
		p := bool(*req.Published)
		up.Published = &p
	}
	return up
}

// ArticleResponse wraps a single article.
type ArticleResponse struct {
	Success bool          `json:"success,omitempty"`
	Article *blog.Article `json:"article"`
}

// ArticleListResponse wraps a list of articles.
type ArticleListResponse struct {
	Articles   []blog.Article  `json:"articles"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// ArticleIDRequest is the JSON body of the admin article actions.
type ArticleIDRequest struct {
	ArticleID string `json:"articleId"`
}

// CleanupResponse is returned from POST /admin/articles/cleanup.
type CleanupResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

// DownloadRequest is the JSON body for POST /admin/articles/download.
type DownloadRequest struct {
	Status   string `json:"status"`
	SeriesID string `json:"seriesId"`
	Search   string `json:"search"`
}

// DownloadResponse is returned from POST /admin/articles/download.
type DownloadResponse struct {
	Articles []blog.MarkdownFile `json:"articles"`
	Filename string              `json:"filename"`
	Count    int                 `json:"count"`
}

// UploadItem is one article to import: either structured fields, or a
// markdown file (Filename set, Title empty) whose Content carries YAML
// frontmatter.
type UploadItem struct {
	Filename  string   `json:"filename,omitempty"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Published flexBool `json:"published"`
	CustomURL *string  `json:"customUrl"`
	Tags      []string `json:"tags"`
	SeriesID  *string  `json:"seriesId"`
}

// UploadRequest is the JSON body for POST /admin/articles/upload.
type UploadRequest struct {
	Articles []UploadItem `json:"articles"`
}

// UploadResponse is returned from POST /admin/articles/upload.
type UploadResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Errors  []string `json:"errors,omitempty"`
}

// HistoryResponse is returned from GET /admin/articles/{id}/history.
type HistoryResponse struct {
	History []blog.ArticleHistory `json:"history"`
}

// TagListResponse is returned from GET /tags.
type TagListResponse struct {
	Tags []blog.Tag `json:"tags"`
}

// SeriesListResponse is returned from GET /series.
type SeriesListResponse struct {
	Series []blog.Series `json:"series"`
}

// CreateSeriesRequest is the JSON body for POST /series/create.
type CreateSeriesRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CustomURL   *string `json:"customUrl"`
}

// SeriesResponse is returned from POST /series/create.
type SeriesResponse struct {
	Series  *blog.Series `json:"series"`
	Message string       `json:"message,omitempty"`
}

// SiteSettingsRequest is the JSON body for POST /settings/site.
type SiteSettingsRequest struct {
	SiteTitle       *string `json:"siteTitle"`
	SiteDescription *string `json:"siteDescription"`
	LogoURL         *string `json:"logoUrl"`
	FaviconURL      *string `json:"faviconUrl"`
	HeaderHTML      *string `json:"headerHtml"`
	FooterHTML      *string `json:"footerHtml"`
}

// SiteSettingsResponse wraps the site settings.
type SiteSettingsResponse struct {
	Settings *blog.SiteSettings `json:"settings"`
	Message  string             `json:"message,omitempty"`
}

// ThemeRequest is the JSON body for POST /settings/theme; ThemeResponse is
// returned from GET /settings/theme.
type ThemeRequest struct {
	CSS string `json:"css"`
}

type ThemeResponse struct {
	CSS string `json:"css"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
}
