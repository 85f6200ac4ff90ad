package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// Authenticator is satisfied by *authcore.Engine.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

type principalContextKey struct{}
type accessTokenContextKey struct{}

// PrincipalFromContext returns the principal id set by Authenticate.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalContextKey{}).(string)
	return id, ok && id != ""
}

// AccessTokenFromContext returns the verified bearer token, which logout
// handlers need to blacklist it.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenContextKey{}).(string)
	return token, ok && token != ""
}

// Authenticate rejects requests without a valid bearer access token.
func Authenticate(engine Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := bearerToken(r.Header.Get("Authorization"))

			var (
				principalID string
				err         error
			)
			if engine == nil {
				err = authcore.ErrUnauthorized
			} else {
				principalID, err = engine.Authenticate(r.Context(), token)
			}
			if err != nil {
				authcore.RespondError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principalID)
			ctx = context.WithValue(ctx, accessTokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP stores the remote host of each request with authcore.WithClientIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(authcore.WithClientIP(r.Context(), host)))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
