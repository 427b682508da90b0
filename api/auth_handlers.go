package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmcleod/phantom/auth"
)

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}

	res, err := a.auth.Login(r.Context(), w, auth.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		TOTPCode: req.TOTPToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			a.audit.logFailure(AuditLoginFailure, r, "invalid credentials")
		case errors.Is(err, auth.ErrInvalidTOTP):
			a.audit.logFailure(AuditLoginFailure, r, "invalid totp")
		}
		a.mapError(w, r, err)
		return
	}
	if res.RequireTOTP {
		a.audit.log(AuditLoginTOTPRequired, r)
		writeJSON(w, http.StatusOK, LoginResponse{RequireTOTP: true})
		return
	}

	a.audit.logEvent(AuditLoginSuccess, r, res.User.ID)
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, User: &res.User})
}

// Logout handles POST /auth/logout. It succeeds with or without a session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if id, err := a.auth.Resolve(r); err == nil {
		a.audit.logEvent(AuditLogout, r, id.UserID)
	}
	a.auth.Logout(w, r)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Me handles GET /auth/me.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	u, err := a.store.GetUser(r.Context(), identity(r).UserID)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		TOTPEnabled: u.TOTPEnabled,
		CreatedAt:   u.CreatedAt,
	}})
}

// SetupTOTP handles POST /auth/totp/setup.
func (a *API) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	setup, err := a.auth.SetupTOTP(r.Context(), id)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditTOTPSetup, r, id.UserID)
	writeJSON(w, http.StatusOK, TOTPSetupResponse{
		Secret:     setup.Secret,
		QRCode:     setup.QRCode,
		OtpauthURL: setup.OtpauthURL,
	})
}

// EnableTOTP handles POST /auth/totp/enable. A wrong confirmation code is
// a bad request here, not an authentication failure: the caller already
// holds a valid session.
func (a *API) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[TOTPEnableRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	id := identity(r)
	if err := a.auth.EnableTOTP(r.Context(), id, req.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidTOTP) {
			writeError(w, http.StatusBadRequest, "invalid token")
			return
		}
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditTOTPEnabled, r, id.UserID)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "TOTP enabled successfully"})
}

// DisableTOTP handles POST /auth/totp/disable.
func (a *API) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := a.auth.DisableTOTP(r.Context(), id); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditTOTPDisabled, r, id.UserID)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "TOTP disabled successfully"})
}

// ChangePassword handles POST /auth/change-password.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ChangePasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	id := identity(r)
	if err := a.auth.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.audit.logFailure(AuditPasswordChanged, r, "wrong current password", slog.String("user_id", id.UserID))
		}
		a.mapError(w, r, err)
		return
	}
	a.audit.logEvent(AuditPasswordChanged, r, id.UserID)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Password changed successfully"})
}
