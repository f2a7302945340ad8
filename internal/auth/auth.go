package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shoenig/go-conceal"
)

const (
	defaultIssuer     = "matchbook"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// clockSkew tolerated when validating iat/exp.
	clockSkew = 5 * time.Second
)

// Kind distinguishes short-lived access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Subject is the identity a token is bound to.
type Subject struct {
	UserID string
	Email  string
}

// Claims represents the JWT claims minted by Issuer.
type Claims struct {
	Email     string `json:"email,omitempty"`
	TokenType Kind   `json:"token_type"`
	jwt.RegisteredClaims
}

// Token is a signed token together with its kind and expiry.
type Token struct {
	Value     string
	Kind      Kind
	ExpiresAt time.Time
}

// TokenPair holds the access and refresh tokens issued at login.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// Issuer signs and verifies HS256 tokens with a secret fixed at construction.
type Issuer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// IssuerOption configures Issuer behavior.
type IssuerOption func(*Issuer) error

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) error {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			i.issuer = issuer
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) error {
		if ttl < 0 {
			return fmt.Errorf("auth: negative access ttl %s", ttl)
		}
		if ttl > 0 {
			i.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) error {
		if ttl < 0 {
			return fmt.Errorf("auth: negative refresh ttl %s", ttl)
		}
		if ttl > 0 {
			i.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) error {
		if fn != nil {
			i.now = fn
		}
		return nil
	}
}

// NewIssuer constructs an Issuer signing with secret. A missing secret is a
// configuration error.
func NewIssuer(secret *conceal.Text, opts ...IssuerOption) (*Issuer, error) {
	if secret == nil || strings.TrimSpace(secret.Unveil()) == "" {
		return nil, ErrMissingSecret
	}
	iss := &Issuer{
		key:        []byte(secret.Unveil()),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(iss); err != nil {
			return nil, err
		}
	}
	return iss, nil
}

// TTL returns the lifetime of tokens of the given kind.
func (i *Issuer) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return i.refreshTTL
	}
	return i.accessTTL
}

// Issue signs a token of the given kind for subject.
func (i *Issuer) Issue(subject Subject, kind Kind) (Token, error) {
	userID := strings.TrimSpace(subject.UserID)
	if userID == "" {
		return Token{}, errors.New("auth: subject user id is required")
	}
	if kind != KindAccess && kind != KindRefresh {
		return Token{}, fmt.Errorf("auth: unknown token kind %q", kind)
	}

	now := i.now().UTC()
	exp := now.Add(i.TTL(kind))
	claims := Claims{
		Email:     subject.Email,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign %s token: %w", kind, err)
	}
	return Token{Value: signed, Kind: kind, ExpiresAt: exp}, nil
}

// IssuePair signs one access and one refresh token for subject.
func (i *Issuer) IssuePair(subject Subject) (TokenPair, error) {
	access, err := i.Issue(subject, KindAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.Issue(subject, KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse verifies the signature, issuer, timestamps and kind of raw. Every
// failure is reported as ErrInvalidToken.
func (i *Issuer) Parse(raw string, kind Kind) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != kind || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
