// Package account implements member registration, login and profile lookup
// on top of a credential Store.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shoenig/go-conceal"

	"matchbook.org/internal/auth"
	"matchbook.org/internal/ids"
)

// Credentials are the inputs to Login.
type Credentials struct {
	Email    string
	Password *conceal.Text
}

// Session is the outcome of a successful login.
type Session struct {
	Profile *Profile
	Tokens  auth.TokenPair
}

// Service orchestrates the registration and authentication workflows.
type Service struct {
	store  Store
	hasher *auth.Hasher
	issuer *auth.Issuer

	uniformLoginErrors bool
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithUniformLoginErrors makes an unknown email indistinguishable from a
// wrong password, in both the error returned and the time spent.
func WithUniformLoginErrors(enabled bool) ServiceOption {
	return func(s *Service) {
		s.uniformLoginErrors = enabled
	}
}

// NewService wires the workflows to their collaborators.
func NewService(store Store, hasher *auth.Hasher, issuer *auth.Issuer, opts ...ServiceOption) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("account: store is required")
	case hasher == nil:
		return nil, errors.New("account: hasher is required")
	case issuer == nil:
		return nil, errors.New("account: issuer is required")
	}
	svc := &Service{store: store, hasher: hasher, issuer: issuer}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register validates req, rejects a taken email, hashes the password and
// persists the profile in a single insert.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	password := conceal.New(req.Password)
	req.Password = ""

	if _, err := s.store.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := req.Profile()
	profile.PasswordHash = hash
	if err := s.store.Create(ctx, profile); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return profile, nil
}

// Login looks the email up, verifies the password and issues an access and
// a refresh token. No token is minted unless verification succeeds.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == nil || creds.Password.Unveil() == "" {
		return nil, invalid("email and password are required")
	}

	profile, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		if s.uniformLoginErrors {
			s.hasher.Decoy(creds.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.hasher.Verify(creds.Password, profile.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issuer.IssuePair(auth.Subject{UserID: profile.ID, Email: profile.Email()})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &Session{Profile: profile, Tokens: tokens}, nil
}

// Profile returns the stored profile for id.
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return nil, ErrNotFound
	}
	profile, err := s.store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return profile, nil
}
