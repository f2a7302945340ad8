package httpapi

import (
	"errors"
	"net/http"

	"github.com/shoenig/go-conceal"

	"matchbook.org/internal/account"
	"matchbook.org/internal/audit"
	"matchbook.org/internal/auth"
	"matchbook.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerData struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type loginData struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		obs.RecordAuthEvent("register", outcome(err))
		a.fail(w, r, err, http.StatusNotFound)
		return
	}

	profile, err := a.accounts.Register(r.Context(), req)
	if err != nil {
		obs.RecordAuthEvent("register", outcome(err))
		a.fail(w, r, err, http.StatusNotFound)
		return
	}
	obs.RecordAuthEvent("register", "success")

	ctx := auth.ContextWithUser(r.Context(), auth.Subject{UserID: profile.ID, Email: profile.Email()})
	_ = audit.LogEvent(ctx, "user.register", map[string]any{
		"email": profile.Email(),
	})

	writeSuccess(w, http.StatusCreated, "User registered successfully", registerData{
		FirstName: profile.PersonalInfo.FirstName,
		LastName:  profile.PersonalInfo.LastName,
		Email:     profile.Email(),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		obs.RecordAuthEvent("login", outcome(err))
		a.fail(w, r, err, http.StatusBadRequest)
		return
	}

	session, err := a.accounts.Login(r.Context(), account.Credentials{
		Email:    req.Email,
		Password: conceal.New(req.Password),
	})
	if err != nil {
		obs.RecordAuthEvent("login", outcome(err))
		_ = audit.LogEvent(r.Context(), "user.login.failed", map[string]any{
			"email":  account.NormalizeEmail(req.Email),
			"reason": outcome(err),
		})
		a.fail(w, r, err, http.StatusBadRequest)
		return
	}
	obs.RecordAuthEvent("login", "success")

	profile := session.Profile
	ctx := auth.ContextWithUser(r.Context(), auth.Subject{UserID: profile.ID, Email: profile.Email()})
	_ = audit.LogEvent(ctx, "user.login", map[string]any{
		"access_expires_at": session.Tokens.Access.ExpiresAt,
	})

	a.setSessionCookies(w, session.Tokens)
	writeSuccess(w, http.StatusOK, "User logged in successfully", loginData{
		UserID:      profile.ID,
		Name:        profile.FullName(),
		Email:       profile.Email(),
		AccessToken: session.Tokens.Access.Value,
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r)
		return
	}
	profile, err := a.accounts.Profile(r.Context(), subject.UserID)
	if err != nil {
		a.fail(w, r, err, http.StatusNotFound)
		return
	}
	writeSuccess(w, http.StatusOK, "User profile fetched successfully", profile)
}

// outcome is the metrics and audit label for a workflow error.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, account.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, account.ErrNotFound):
		return "not_found"
	case errors.Is(err, account.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, account.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
