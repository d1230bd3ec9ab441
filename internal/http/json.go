package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]string{"error": p.ErrCode, "message": p.Err.Error()}
	if field := apperrors.GetField(p.Err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, p.Code, body)
}

// WriteAppError classifies err by its error code and writes the matching HTTP
// status. Unclassified errors map to 500.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	WriteError(w, ErrorParams{Code: statusForCode(code), ErrCode: string(code), Err: err})
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeUnsupportedPlatform,
		apperrors.ErrCodeUnsupportedOperation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeUnknownPlugin:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidState,
		apperrors.ErrCodeConflict,
		apperrors.ErrCodeJobNotReady:
		return http.StatusConflict
	case apperrors.ErrCodeAuthentication:
		return http.StatusBadGateway
	case apperrors.ErrCodeRateLimited, apperrors.ErrCodeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
