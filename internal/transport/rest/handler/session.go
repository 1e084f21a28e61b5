package handler

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"surveyflow/internal/model"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest/middleware"
)

// SessionHandler handles respondent session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
		logger:     logger,
	}
}

// AnswerRequest is the request body for saving one answer
type AnswerRequest struct {
	Value any `json:"value"`
}

// Start handles POST /v1/surveys/{surveyId}/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	info := model.RespondentInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}

	result, err := h.sessionSvc.Start(r.Context(), mux.Vars(r)["surveyId"], info)
	if err != nil {
		h.fail(w, "start session", err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Current handles GET /v1/sessions/current
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetRespondent(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.sessionSvc.Resume(r.Context(), claims)
	if err != nil {
		h.fail(w, "resume session", err, view)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Answer handles PUT /v1/sessions/current/answers/{key}
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetRespondent(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sessionSvc.Answer(r.Context(), claims, mux.Vars(r)["key"], req.Value)
	if err != nil {
		h.fail(w, "save answer", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Next handles POST /v1/sessions/current/next
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, "next page", h.sessionSvc.Next)
}

// Previous handles POST /v1/sessions/current/previous
func (h *SessionHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, "previous page", h.sessionSvc.Previous)
}

// Submit handles POST /v1/sessions/current/submit
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, "submit", h.sessionSvc.Submit)
}

// Reset handles DELETE /v1/sessions/current
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetRespondent(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessionSvc.Reset(r.Context(), claims); err != nil {
		h.fail(w, "reset session", err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) navigate(w http.ResponseWriter, r *http.Request, op string,
	move func(context.Context, *model.RespondentClaims) (*service.SessionView, error)) {
	claims := middleware.GetRespondent(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := move(r.Context(), claims)
	if err != nil {
		h.fail(w, op, err, view)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// fail writes err. When the service still produced a view (validation or
// verification failures) it is returned so the client can render errors.
func (h *SessionHandler) fail(w http.ResponseWriter, op string, err error, view *service.SessionView) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.logger.Error(op+" failed", zap.Error(err))
	}
	if view == nil || status == http.StatusInternalServerError {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, map[string]interface{}{
		"error":   err.Error(),
		"session": view,
	})
}

// clientIP prefers the first X-Forwarded-For hop
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
