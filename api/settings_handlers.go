package api

import (
	"net/http"

	"github.com/jmcleod/phantom/blog"
)

// GetSiteSettings handles GET /settings/site.
func (a *API) GetSiteSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.store.SiteSettings(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SiteSettingsResponse{Settings: settings})
}

// UpdateSiteSettings handles POST /settings/site.
func (a *API) UpdateSiteSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SiteSettingsRequest](w, r, maxSmallBodySize)
	if !ok {
		return
	}
	settings, err := a.store.UpdateSiteSettings(r.Context(), blog.SiteSettingsUpdate{
		SiteTitle:       req.SiteTitle,
		SiteDescription: req.SiteDescription,
		LogoURL:         req.LogoURL,
		FaviconURL:      req.FaviconURL,
		HeaderHTML:      req.HeaderHTML,
		FooterHTML:      req.FooterHTML,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditSettingsUpdated, r, identity(r).UserID)
	writeJSON(w, http.StatusOK, SiteSettingsResponse{Settings: settings, Message: "Site settings updated successfully"})
}

// GetTheme handles GET /settings/theme.
func (a *API) GetTheme(w http.ResponseWriter, r *http.Request) {
	css, err := a.themes.Load()
	if err != nil {
		a.writeInternalError(w, r, "failed to read theme file", err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{CSS: css})
}

// UpdateTheme handles POST /settings/theme.
func (a *API) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ThemeRequest](w, r, maxThemeBodySize)
	if !ok {
		return
	}
	if err := a.themes.Save(req.CSS); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditThemeUpdated, r, identity(r).UserID)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Theme uploaded successfully"})
}
