package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/cryptachat/internal/api"
	"github.com/and161185/cryptachat/internal/errs"
)

const maxBodyBytes = 4 << 20

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch errs.Category(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest
	case errs.ErrAlreadyExists, errs.ErrConflict:
		return http.StatusConflict
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrUnauthorized:
		return http.StatusUnauthorized
	case errs.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) api.Error { return api.Error{Message: msg} }

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		s.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, errorBody(errs.Detail(err)))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON object body into dst. An absent body decodes to the zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errs.Validation("request body too large")
		}
		return errs.Validation("malformed JSON body")
	}
	return nil
}
