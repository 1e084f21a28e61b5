package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"surveyflow/internal/model"
	"surveyflow/internal/service"
)

const maxLoginSize = 4 << 10

// AuthHandler serves host login
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(authSvc *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// Login handles POST /v1/auth/login. Failed attempts are logged without the
// submitted password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("host login failed", zap.Error(err))
		} else {
			h.logger.Info("host login rejected", zap.String("username", req.Username))
		}
		writeServiceError(w, err)
		return
	}

	h.logger.Info("host logged in", zap.String("hostId", resp.HostID))
	writeJSON(w, http.StatusOK, resp)
}
