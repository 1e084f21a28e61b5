package handler

import (
	"errors"
	"net/http"

	"surveyflow/internal/repository"
	"surveyflow/internal/service"
	"surveyflow/internal/skiplogic"
)

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	var defErrs skiplogic.DefinitionErrors
	switch {
	case errors.Is(err, service.ErrSurveyNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrResponseNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotSurveyOwner):
		return http.StatusForbidden
	case errors.Is(err, skiplogic.ErrUnknownQuestion),
		errors.Is(err, service.ErrInvalidAnswer):
		return http.StatusBadRequest
	case errors.Is(err, skiplogic.ErrQuestionHidden),
		errors.Is(err, service.ErrStaleVerification),
		errors.Is(err, service.ErrSubmissionInFlight),
		errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, repository.ErrDuplicateSurvey):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidationFailed),
		errors.Is(err, service.ErrSubmissionRejected),
		errors.As(err, &defErrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrVerificationUnavailable),
		errors.Is(err, service.ErrSubmissionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Internal errors are
// not echoed to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal error")
		return
	}

	var defErrs skiplogic.DefinitionErrors
	if errors.As(err, &defErrs) {
		writeJSON(w, status, map[string]interface{}{
			"error":   "invalid survey definition",
			"details": []string(defErrs),
		})
		return
	}
	writeError(w, status, err.Error())
}
