// Package responsewriter provides a response writer that remembers the
// status code written by a handler, and a middleware that installs it.
package responsewriter

import (
	"context"
	"errors"
	"net/http"
)

// Using an unexported type prevents key collisions from other packages.
type responseWriterKey string

// ResponseWriterKey is the context key for the status recorder.
const ResponseWriterKey responseWriterKey = "response-writer"

// StatusRecorder wraps an http.ResponseWriter and records the status code.
type StatusRecorder struct {
	http.ResponseWriter

	status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w}
}

func (r *StatusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Status returns the first status code written, or 200 if the handler never
// wrote a header.
func (r *StatusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ResponseWriterMiddleware wraps the response writer in a StatusRecorder and
// injects the recorder into the request context.
func ResponseWriterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := w.(*StatusRecorder)
		if !ok {
			rec = NewStatusRecorder(w)
		}
		ctx := context.WithValue(r.Context(), ResponseWriterKey, rec)
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// StatusRecorderFromContext retrieves the recorder installed by
// ResponseWriterMiddleware.
func StatusRecorderFromContext(ctx context.Context) (*StatusRecorder, error) {
	rec, ok := ctx.Value(ResponseWriterKey).(*StatusRecorder)
	if !ok {
		return nil, errors.New("status recorder not found in context")
	}
	return rec, nil
}
