// Package problem renders RFC 7807 problem documents for every error the API
// returns, including auth and rate limit rejections from middleware.
package problem

import (
	"encoding/json"
	"net/http"
)

const (
	contentType = "application/problem+json"
	baseTypeURL = "https://errors.fcy-position.dev/"
)

// FieldError names one request field that failed validation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Details represents RFC 7807 Problem Details plus the request_id and
// invalid_params extensions.
type Details struct {
	Type          string       `json:"type"`
	Title         string       `json:"title"`
	Status        int          `json:"status"`
	Detail        string       `json:"detail"`
	Instance      string       `json:"instance"`
	RequestID     string       `json:"request_id"`
	InvalidParams []FieldError `json:"invalid_params,omitempty"`
}

// Option adjusts a problem document before it is written.
type Option func(*Details)

// WithInvalidParams attaches per-field validation failures.
func WithInvalidParams(params []FieldError) Option {
	return func(d *Details) {
		d.InvalidParams = params
	}
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// Write sends an RFC 7807 response. The request id is the trace id set by
// the trace middleware.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string, opts ...Option) {
	d := Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
	if d.Title == "" {
		d.Title = http.StatusText(status)
	}
	if d.Type == "" {
		d.Type = "about:blank"
	}
	if r != nil {
		d.Instance = r.URL.Path
		d.RequestID = r.Header.Get("X-Trace-ID")
	}
	if d.RequestID == "" {
		d.RequestID = w.Header().Get("X-Trace-ID")
	}
	for _, opt := range opts {
		opt(&d)
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(d)
}
