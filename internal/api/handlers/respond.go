package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wxsales/copilot/internal/apperr"
	"github.com/wxsales/copilot/pkg/logging"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func respondOK(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data})
}

// respondErr maps the error taxonomy to a status and a stable
// error_code. Internal detail never leaks to the caller.
func respondErr(w http.ResponseWriter, logger *logging.Logger, err error) {
	kind := apperr.KindOf(err)
	message := "internal server error"
	if kind != apperr.KindInternal {
		message = err.Error()
	} else {
		logger.Error("internal error", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.Status(kind))
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Success:   false,
		Error:     message,
		ErrorCode: apperr.Code(kind),
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}
