package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"matchbook.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var errMissingToken = errors.New("missing bearer token")

// requireUser resolves the caller from a bearer header or the access_token
// cookie and rejects the request when no valid access token is presented.
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := tokenFromRequest(r)
		if err != nil {
			writeUnauthorized(w, r)
			return
		}
		claims, err := a.issuer.Parse(token, auth.KindAccess)
		if err != nil {
			writeUnauthorized(w, r)
			return
		}
		ctx := auth.ContextWithUser(r.Context(), auth.Subject{
			UserID: claims.Subject,
			Email:  claims.Email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="matchbook"`)
	writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
}

func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get(authHeader); strings.TrimSpace(h) != "" {
		return extractBearerToken(h)
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, nil
		}
	}
	return "", errMissingToken
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingToken
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}
