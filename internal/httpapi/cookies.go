package httpapi

import (
	"net/http"

	"matchbook.org/internal/auth"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// CookieSettings controls the attributes of the session cookies.
type CookieSettings struct {
	Secure bool
	Domain string
}

func (a *API) setSessionCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, a.sessionCookie(accessCookie, pair.Access))
	http.SetCookie(w, a.sessionCookie(refreshCookie, pair.Refresh))
}

func (a *API) sessionCookie(name string, tok auth.Token) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		Domain:   a.cookies.Domain,
		Expires:  tok.ExpiresAt,
		MaxAge:   int(a.issuer.TTL(tok.Kind).Seconds()),
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
