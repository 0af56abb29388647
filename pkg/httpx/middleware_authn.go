package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// Messages returned by the Gate. Bodies are identical for every cause within
// a category so callers cannot probe why a token was refused.
const (
	MsgNoToken      = "Unauthorized: No token provided"
	MsgTokenRevoked = "Unauthorized: Token has been revoked"
	MsgInvalidToken = "Unauthorized: Invalid token"
)

// TokenVerifier checks an access token's signature and expiry.
type TokenVerifier interface {
	Verify(kind jwtx.Kind, token string) (jwtx.Claims, error)
}

// RevocationChecker reports whether an access token has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// BearerToken extracts the access token from the Authorization header,
// falling back to the accessToken cookie.
func BearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	return CookieValue(r, AccessTokenCookie)
}

// Gate admits requests carrying a valid, unrevoked access token and puts the
// caller's identity into the request context.
func Gate(v TokenVerifier, rc RevocationChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			// 1. Locate the token.
			raw := BearerToken(r)
			if raw == "" {
				writeUnauthorized(w, "invalid_request", MsgNoToken)
				return
			}

			// 2. The blacklist is consulted before the signature.
			revoked, err := rc.IsRevoked(ctx, raw)
			if err != nil {
				log.Error("revocation lookup failed", "err", err)
				WriteError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if revoked {
				writeUnauthorized(w, "invalid_token", MsgTokenRevoked)
				return
			}

			// 3. Verify signature and expiry.
			claims, err := v.Verify(jwtx.Access, raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					log.Debug("access token expired")
				} else {
					log.Warn("access token rejected", "err", err)
				}
				writeUnauthorized(w, "invalid_token", MsgInvalidToken)
				return
			}

			ctx = WithAuth(ctx, claims)
			ctx = slogx.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge plus the JSON error body.
func writeUnauthorized(w http.ResponseWriter, code, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	WriteError(w, http.StatusUnauthorized, msg)
}
