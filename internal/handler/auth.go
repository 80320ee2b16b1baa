package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stockroom/internal/domain/auth"
	"github.com/xenking/stockroom/pkg/httpmiddleware"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

type keyInfoKey struct{}

// KeyFromContext returns the authenticated key record, if any.
func KeyFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(keyInfoKey{}).(*auth.APIKeyInfo)
	return info, ok
}

// Authenticator verifies API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error)
}

var _ Authenticator = (*auth.Authenticator)(nil)

// RequireAPIKey rejects requests without a valid api_key header with 401.
func RequireAPIKey(a Authenticator) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			info, err := a.Authenticate(ctx, r.Header.Get(APIKeyHeader))
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					zctx.From(ctx).Error("API key lookup failed", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx = context.WithValue(ctx, keyInfoKey{}, info)
			ctx = zctx.With(ctx, zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitKey keys authenticated requests by API key id and everything
// else by client IP. It must run after RequireAPIKey to see the key.
func RateLimitKey(r *http.Request) string {
	if info, ok := KeyFromContext(r.Context()); ok {
		return "key:" + info.ID
	}
	return "ip:" + httpmiddleware.ClientIP(r)
}
