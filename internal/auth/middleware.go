package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/sanisidro/fiscal-api/internal/domain"
	"go.uber.org/zap"
)

// Middleware guards administrative endpoints with the x-api-key header
type Middleware struct {
	apiKey string
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware. With an empty key
// every request is let through as anonymous.
func NewMiddleware(apiKey string, logger *zap.Logger) *Middleware {
	if apiKey == "" {
		logger.Warn("No admin API key configured, administrative endpoints are unauthenticated")
	}
	return &Middleware{
		apiKey: apiKey,
		logger: logger,
	}
}

// RequireAPIKey rejects requests without a matching x-api-key header
func (m *Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" {
			ctx := WithCaller(r.Context(), &Caller{AuthType: "anonymous", RemoteAddr: r.RemoteAddr})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if !m.validateAPIKey(r.Header.Get("x-api-key")) {
			m.logger.Warn("invalid API key attempt",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(domain.APIError{
				Type:   domain.ErrorTypeUnauthorized,
				Title:  http.StatusText(http.StatusUnauthorized),
				Status: http.StatusUnauthorized,
				Detail: "missing or invalid x-api-key header",
			})
			return
		}

		m.logger.Info("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth_type", "api_key"),
		)

		ctx := WithCaller(r.Context(), &Caller{AuthType: "api_key", RemoteAddr: r.RemoteAddr})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) validateAPIKey(key string) bool {
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}
