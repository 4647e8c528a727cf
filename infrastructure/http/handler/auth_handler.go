package handler

import (
	"errors"
	"net/http"

	"github.com/fixora/authapi/application/port/inbound"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/infrastructure/http/middleware"
	"github.com/fixora/authapi/infrastructure/http/response"
	"github.com/fixora/authapi/infrastructure/http/validator"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
	logger      logger.Logger
}

func NewAuthHandler(authUseCase inbound.AuthUseCase, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      log,
	}
}

func requestMeta(r *http.Request) inbound.RequestMeta {
	return inbound.RequestMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// writeError logs failures that the client only sees as a generic message.
func (h *AuthHandler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	if status := domainerror.GetHTTPStatusCode(err); status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Request failed", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}
	response.Error(w, err)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req inbound.RegisterRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, domainerror.ErrMalformedRequest("Invalid request body"))
		return
	}

	// Password and email rules run in the use case, after the duplicate checks.
	if !validator.ValidateRequired(req.Username) {
		response.Error(w, domainerror.ErrMalformedRequest("Invalid request body"))
		return
	}

	if err := h.authUseCase.Register(r.Context(), req); err != nil {
		h.writeError(r, w, err)
		return
	}

	response.Message(w, http.StatusOK, "User Registered!")
}

func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req inbound.AuthenticateRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, domainerror.ErrMalformedRequest("Invalid request body"))
		return
	}

	if !validator.ValidateRequired(req.Username, req.Password) {
		response.Error(w, domainerror.ErrMalformedRequest("Username and password are required"))
		return
	}

	pair, err := h.authUseCase.Authenticate(r.Context(), req, requestMeta(r))
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	response.OK(w, pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req inbound.RefreshRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, validator.ErrEmptyBody) {
			response.Error(w, domainerror.ErrMalformedRequest("Invalid Client Request"))
			return
		}
		response.Error(w, domainerror.ErrMalformedRequest("Invalid request body"))
		return
	}

	pair, err := h.authUseCase.Refresh(r.Context(), req, requestMeta(r))
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	response.OK(w, pair)
}
