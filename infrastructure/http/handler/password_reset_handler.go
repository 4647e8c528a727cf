package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fixora/authapi/application/port/inbound"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/infrastructure/http/response"
	"github.com/fixora/authapi/infrastructure/http/validator"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type PasswordResetHandler struct {
	useCase inbound.PasswordResetUseCase
	logger  logger.Logger
}

func NewPasswordResetHandler(useCase inbound.PasswordResetUseCase, log logger.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		useCase: useCase,
		logger:  log,
	}
}

// SendResetEmail handles POST /send-reset-email/{email}.
func (h *PasswordResetHandler) SendResetEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	if !validator.ValidateRequired(email) {
		response.Error(w, domainerror.ErrMalformedRequest("Email is required"))
		return
	}

	if err := h.useCase.SendResetEmail(r.Context(), email); err != nil {
		if domainerror.GetHTTPStatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "Send reset email failed", err, nil)
		}
		response.Error(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Email Sent!")
}

func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req inbound.ResetPasswordRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, domainerror.ErrMalformedRequest("Invalid request body"))
		return
	}

	if !validator.ValidateRequired(req.Email) {
		response.Error(w, domainerror.ErrMalformedRequest("Invalid request body"))
		return
	}

	if err := h.useCase.ResetPassword(r.Context(), req); err != nil {
		if domainerror.GetHTTPStatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "Reset password failed", err, nil)
		}
		response.Error(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Password Reset Successfully")
}
