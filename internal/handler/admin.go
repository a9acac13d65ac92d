package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/timevault/timevault-go/internal/middleware"
	"github.com/timevault/timevault-go/internal/model"
	"github.com/timevault/timevault-go/internal/service"
)

// AdminHandler handles moderation and user-management endpoints. Routes are
// gated by the RequireAdmin middleware; the access controller re-checks the
// directory before every write.
type AdminHandler struct {
	access *service.Access
	auth   *service.AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(access *service.Access, auth *service.AuthService) *AdminHandler {
	return &AdminHandler{access: access, auth: auth}
}

// HandleStats handles GET /api/admin/stats requests.
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	stats, err := h.access.AdminStats(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleListUsers handles GET /api/admin/users?status= requests.
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	users, err := h.access.AdminListUsers(r.Context(), actor.ID, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HandleGetUser handles GET /api/admin/users/{user_id} requests.
func (h *AdminHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	user, capsules, err := h.access.AdminGetUser(r.Context(), actor.ID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"capsules": capsules,
	})
}

// HandleUpdateUser handles PUT /api/admin/users/{user_id} requests with a
// body of {"action": "ban"|"unban"}.
func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	var banned bool
	switch req.Action {
	case "ban":
		banned = true
	case "unban":
		banned = false
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse("action must be ban or unban"))
		return
	}

	if err := h.access.AdminSetUserBanned(r.Context(), actor.ID, userID, banned); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteUser handles DELETE /api/admin/users/{user_id} requests.
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	if err := h.access.AdminDeleteUser(r.Context(), actor.ID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListCapsules handles GET /api/admin/capsules?filter= requests.
// Accepted filters: locked, unlocked, reported, reviewed.
func (h *AdminHandler) HandleListCapsules(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	capsules, err := h.access.AdminListCapsules(r.Context(), actor.ID, r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, capsules)
}

// HandleDeleteCapsule handles DELETE /api/admin/capsules/{capsule_id}
// requests.
func (h *AdminHandler) HandleDeleteCapsule(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	capsuleID := chi.URLParam(r, "capsule_id")
	if capsuleID == "" || len(capsuleID) > 36 {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid capsule id"))
		return
	}

	if err := h.access.AdminDeleteCapsule(r.Context(), actor.ID, capsuleID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleReviewCapsule handles PUT /api/admin/capsules/{capsule_id}/review
// requests.
func (h *AdminHandler) HandleReviewCapsule(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	capsuleID := chi.URLParam(r, "capsule_id")
	if capsuleID == "" || len(capsuleID) > 36 {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid capsule id"))
		return
	}

	if err := h.access.ReviewCapsule(r.Context(), actor.ID, capsuleID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateAdmin handles POST /api/admin/create-admin requests.
func (h *AdminHandler) HandleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	// Directory-level moderator check before creating a privileged account.
	allowed, err := h.access.CanModerate(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !allowed {
		writeJSON(w, http.StatusForbidden, errorResponse("forbidden"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var req model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	resp, err := h.auth.CreateAdmin(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired), errors.Is(err, service.ErrPasswordRequired):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrEmailTaken):
			writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
		default:
			writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func parseUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
}
