package handler

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"surveyflow/internal/model"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest/middleware"
)

const maxDefinitionSize = 1 << 20

// SurveyHandler handles survey definition endpoints
type SurveyHandler struct {
	surveySvc *service.SurveyService
	logger    *zap.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService, logger *zap.Logger) *SurveyHandler {
	return &SurveyHandler{
		surveySvc: surveySvc,
		logger:    logger,
	}
}

// readDefinition accepts JSON or YAML bodies
func readDefinition(w http.ResponseWriter, r *http.Request) (*model.Survey, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDefinitionSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "survey definition too large")
		return nil, false
	}
	survey, err := model.ParseDefinition(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return survey, true
}

// Create handles POST /v1/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	survey, ok := readDefinition(w, r)
	if !ok {
		return
	}

	created, err := h.surveySvc.Create(r.Context(), hostID, survey)
	if err != nil {
		h.logError("create survey", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /v1/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	surveys, err := h.surveySvc.List(r.Context(), hostID)
	if err != nil {
		h.logError("list surveys", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, surveys)
}

// Get handles GET /v1/surveys/{surveyId}. Definitions are public so
// respondents can render them.
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	survey, err := h.surveySvc.Get(r.Context(), surveyID)
	if err != nil {
		h.logError("get survey", err)
		writeServiceError(w, err)
		return
	}

	survey.HostID = ""
	writeJSON(w, http.StatusOK, survey)
}

// Update handles PUT /v1/surveys/{surveyId}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	survey, ok := readDefinition(w, r)
	if !ok {
		return
	}
	survey.ID = mux.Vars(r)["surveyId"]

	updated, err := h.surveySvc.Update(r.Context(), hostID, survey)
	if err != nil {
		h.logError("update survey", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /v1/surveys/{surveyId}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.surveySvc.Delete(r.Context(), hostID, mux.Vars(r)["surveyId"]); err != nil {
		h.logError("delete survey", err)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /v1/surveys/{surveyId}/stats
func (h *SurveyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.surveySvc.Stats(r.Context(), hostID, mux.Vars(r)["surveyId"])
	if err != nil {
		h.logError("survey stats", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *SurveyHandler) logError(op string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	}
}
