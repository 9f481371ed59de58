package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/chartmesh/chartmesh/internal/observability"
)

type contextKey string

const identityKey contextKey = "auth_identity"

const (
	apiKeyHeader   = "X-API-Key"
	clientIDHeader = "X-Client-ID"

	// AnonymousClient owns requests that carry neither an identity nor a
	// client header.
	AnonymousClient = "anonymous"
)

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// ClientID names the caller for query history: the authenticated identity
// first, then the X-Client-ID header. Without auth the header is trusted, so
// history is a per-browser convenience and not an access boundary.
func ClientID(r *http.Request) string {
	if identity, ok := IdentityFromContext(r.Context()); ok && strings.TrimSpace(identity.ClientID) != "" {
		return identity.ClientID
	}
	if client := strings.TrimSpace(r.Header.Get(clientIDHeader)); client != "" {
		return client
	}
	return AnonymousClient
}

// RateLimitKey picks the bucket a request is limited under: the authenticated
// client, else the remote host. The X-Client-ID header is chosen by the caller
// and never selects the bucket.
func RateLimitKey(r *http.Request) string {
	if identity, ok := IdentityFromContext(r.Context()); ok && strings.TrimSpace(identity.ClientID) != "" {
		return "client:" + identity.ClientID
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if remote == "" {
		return AnonymousClient
	}
	return "addr:" + remote
}

func Middleware(logger *slog.Logger, validator APIKeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := extractAPIKey(r)
			if apiKey == "" {
				writeUnauthorized(w, r, "missing API key")
				return
			}

			identity, ok := validator.Validate(r.Context(), apiKey)
			if !ok {
				if logger != nil {
					logger.WarnContext(r.Context(), "authentication failed",
						slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
						slog.String("path", r.URL.Path),
					)
				}
				writeUnauthorized(w, r, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(authorization, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": "UNAUTHORIZED",
		"message":    message,
		"retryable":  false,
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}
