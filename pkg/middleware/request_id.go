package middleware

import (
	"net/http"

	"github.com/apc-foundation/exam-pipeline/pkg/requestid"
	"github.com/go-chi/chi/v5/middleware"
)

const RequestIDHeader = "X-Request-Id"

// RequestID takes the request id from the X-Request-Id header, falls back to the one chi
// generated and finally to a fresh uuid. The id is stored in the context through the
// requestid package and echoed back in the response so callers can quote it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = requestid.Generate()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), id)))
	})
}
