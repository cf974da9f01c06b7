package response

import (
	"encoding/json"
	"net/http"

	"application-workflow/internal/common/errors"
)

// ErrorBody is the envelope of every non-2xx answer.
type ErrorBody struct {
	Error *errors.StandardError `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err with the status mapped from its code.
func Error(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	if stdErr.Retryable && stdErr.Code == errors.ErrCodeRateLimited {
		w.Header().Set("Retry-After", "60")
	}
	JSON(w, errors.HTTPStatus(stdErr.Code), ErrorBody{Error: stdErr})
}
