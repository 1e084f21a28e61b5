package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest/middleware"
)

// ResponseHandler serves archived submissions to the owning host
type ResponseHandler struct {
	surveySvc *service.SurveyService
	logger    *zap.Logger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(surveySvc *service.SurveyService, logger *zap.Logger) *ResponseHandler {
	return &ResponseHandler{surveySvc: surveySvc, logger: logger}
}

// List handles GET /v1/surveys/{surveyId}/responses?limit=
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	responses, err := h.surveySvc.Responses(r.Context(), hostID, mux.Vars(r)["surveyId"], limit)
	if err != nil {
		h.logError("list responses", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, responses)
}

// Get handles GET /v1/surveys/{surveyId}/responses/{responseId}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	vars := mux.Vars(r)
	response, err := h.surveySvc.Response(r.Context(), hostID, vars["surveyId"], vars["responseId"])
	if err != nil {
		h.logError("get response", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ResponseHandler) logError(op string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	}
}
