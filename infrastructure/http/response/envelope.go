package response

import (
	"encoding/json"
	"net/http"

	domainerror "github.com/fixora/authapi/domain/error"
)

// MessageBody is the {"message": "..."} shape every non-data answer uses.
type MessageBody struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func Message(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageBody{Message: message})
}

// Error writes err with the status from the error catalog. Only the public
// message of an AppError reaches the client.
func Error(w http.ResponseWriter, err error) {
	WriteJSON(w, domainerror.GetHTTPStatusCode(err), domainerror.NewErrorResponse(err))
}

func Unauthorized(w http.ResponseWriter, message string) {
	Message(w, http.StatusUnauthorized, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Message(w, http.StatusInternalServerError, message)
}
