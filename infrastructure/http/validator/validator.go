package validator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes r's body into dst. An absent body or a literal null is
// reported as ErrEmptyBody.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}

	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if strings.TrimSpace(string(raw)) == "null" {
		return ErrEmptyBody
	}
	return json.Unmarshal(raw, dst)
}

// ValidateRequired reports whether every value is non-blank.
func ValidateRequired(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func ValidateJWT(token string) bool {
	if token == "" {
		return false
	}

	// header.payload.signature
	parts := strings.Split(token, ".")
	return len(parts) == 3
}
