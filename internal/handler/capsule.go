package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/timevault/timevault-go/internal/middleware"
	"github.com/timevault/timevault-go/internal/model"
	"github.com/timevault/timevault-go/internal/service"
)

const maxCapsuleBody = 25 << 20 // 25MB, media included

// CapsuleHandler handles HTTP requests for capsule operations. Everything
// goes through the access controller so the authorization order is enforced
// in one place.
type CapsuleHandler struct {
	access *service.Access
}

// NewCapsuleHandler creates a new CapsuleHandler.
func NewCapsuleHandler(access *service.Access) *CapsuleHandler {
	return &CapsuleHandler{access: access}
}

// HandleCreateCapsule handles POST /api/capsules requests. The body is
// multipart form data: title, message, unlockDate, isPublic, isEncrypted and
// an optional media file.
func (h *CapsuleHandler) HandleCreateCapsule(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCapsuleBody)
	if err := r.ParseMultipartForm(maxCapsuleBody); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid multipart form"))
		return
	}

	unlockAt, err := parseUnlockDate(r.FormValue("unlockDate"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid unlock date"))
		return
	}

	req := model.CreateCapsuleRequest{
		Title:     strings.TrimSpace(r.FormValue("title")),
		Message:   r.FormValue("message"),
		UnlockAt:  unlockAt,
		Public:    r.FormValue("isPublic") == "true",
		Encrypted: r.FormValue("isEncrypted") == "true",
	}

	var upload *service.MediaUpload
	if file, header, err := r.FormFile("media"); err == nil {
		defer file.Close()
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		upload = &service.MediaUpload{ContentType: contentType, Body: file}
	}

	resp, err := h.access.CreateCapsule(r.Context(), actor.ID, req, upload)
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleListCapsules handles GET /api/capsules requests (the actor's own).
func (h *CapsuleHandler) HandleListCapsules(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	capsules, err := h.access.ListOwned(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, capsules)
}

// HandleListPublic handles GET /api/capsules/public requests. The route is
// reachable without a token; an authenticated actor is used when present so
// owners see their own entries consistently.
func (h *CapsuleHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	var actorID int64
	if actor, ok := middleware.ActorFromContext(r.Context()); ok {
		actorID = actor.ID
	}

	capsules, err := h.access.ListPublic(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, capsules)
}

// HandleGetCapsule handles GET /api/capsules/{capsule_id} requests. A locked
// capsule responds 200 with a locked view carrying the unlock time.
func (h *CapsuleHandler) HandleGetCapsule(w http.ResponseWriter, r *http.Request) {
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

	resp, err := h.access.GetCapsule(r.Context(), actor.ID, capsuleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDeleteCapsule handles DELETE /api/capsules/{capsule_id} requests.
func (h *CapsuleHandler) HandleDeleteCapsule(w http.ResponseWriter, r *http.Request) {
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

	if err := h.access.DeleteCapsule(r.Context(), actor.ID, capsuleID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleReportCapsule handles POST /api/capsules/{capsule_id}/report
// requests. Repeating a report from the same actor returns the unchanged
// count.
func (h *CapsuleHandler) HandleReportCapsule(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var req model.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}
	if len(req.Reason) > 500 {
		writeJSON(w, http.StatusBadRequest, errorResponse("reason too long"))
		return
	}

	resp, err := h.access.ReportCapsule(r.Context(), actor.ID, capsuleID, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseUnlockDate accepts RFC 3339 and the datetime-local format browsers
// submit.
func parseUnlockDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04", value)
}
