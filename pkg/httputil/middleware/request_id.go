// Package middleware holds the http.Handler wrappers the dashboard server
// chains around its routes.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mqttscope/mqttscope/pkg/httputil"
)

const RequestIDHeader = "X-Request-Id"

// RequestID assigns each request a UUID, stored in the context for the
// logger and echoed back in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, ok := r.Context().Value(httputil.RequestIDCtxKey).(string)
		if !ok || reqID == "" {
			reqID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), httputil.RequestIDCtxKey, reqID)
		w.Header().Set(RequestIDHeader, reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
