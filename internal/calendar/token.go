package calendar

import (
	"context"
	"errors"
	"strings"
)

// ErrNoCredentials is returned when neither a request token nor a fallback
// token source is available.
var ErrNoCredentials = errors.New("calendar: no access token available")

type accessTokenKey struct{}

// WithAccessToken stores a caller supplied OAuth access token on the context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the access token stored by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}
