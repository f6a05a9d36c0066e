package http

import (
	"net/http"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/contracts"
)

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body contracts.RegisterRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), application.RegisterRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
		Role:        body.Role,
		IPAddress:   readIP(r),
	}, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	writeSuccess(w, http.StatusCreated, contracts.RegisterResponse{
		UserID: res.UserID.String(),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body contracts.LoginRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.Login(r.Context(), application.LoginRequest{
		Email:      body.Email,
		Password:   body.Password,
		DeviceName: body.DeviceName,
		DeviceOS:   body.DeviceOS,
		IPAddress:  readIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	writeSuccess(w, http.StatusOK, contracts.LoginResponse{
		Token:     res.Token,
		ExpiresAt: formatTime(res.ExpiresAt),
		User:      toUserDTO(res.User),
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeMissingActorError(r.Context(), w, "refresh")
		return
	}
	res, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.LoginResponse{
		Token:     res.Token,
		ExpiresAt: formatTime(res.ExpiresAt),
		User:      toUserDTO(res.User),
	})
}

func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.PublicJWKs()
	if err != nil {
		writeMappedError(r.Context(), w, "jwks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "logout")
		return
	}
	if err := h.service.Logout(r.Context(), actor); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "me")
		return
	}
	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserDTO(user))
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "list_sessions")
		return
	}
	items, err := h.service.ListSessions(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	sessions := make([]contracts.SessionDTO, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, toSessionDTO(item))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "revoke_session")
		return
	}
	sessionID, err := uuidParam(r, "session_id")
	if err != nil {
		writeValidationError(r.Context(), w, "revoke_session", err)
		return
	}
	if err := h.service.RevokeSession(r.Context(), actor, sessionID); err != nil {
		writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session revoked successfully")
}

func (h *Handler) loginHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "login_history")
		return
	}

	query := application.LoginHistoryQuery{
		Page:   parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit:  parseIntDefault(r.URL.Query().Get("limit"), 20),
		Days:   parseIntDefault(r.URL.Query().Get("days"), 0),
		Status: r.URL.Query().Get("status"),
	}
	items, err := h.service.ListLoginHistory(r.Context(), actor, query)
	if err != nil {
		writeMappedError(r.Context(), w, "login_history", err)
		return
	}
	attempts := make([]contracts.LoginHistoryItemDTO, 0, len(items))
	for _, item := range items {
		attempts = append(attempts, toLoginHistoryDTO(item))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"attempts": attempts})
}
