// Package httpapi writes the JSON bodies of the import endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

// Meta ties an error response back to the request log line.
type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Path      string `json:"path,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// RequestMeta reads the request id set by the logging middleware.
func RequestMeta(r *http.Request) *Meta {
	meta := &Meta{Path: r.URL.Path}
	if id, ok := composables.UseRequestID(r.Context()); ok {
		meta.RequestID = id
	}
	return meta
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta *Meta) error {
	return WriteJSON(w, status, ErrorEnvelope{Code: code, Message: message, Meta: meta})
}
