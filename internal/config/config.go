// Package config loads service settings from MATCHBOOK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shoenig/go-conceal"
	"golang.org/x/crypto/bcrypt"
)

// Prefix is prepended to every variable name below.
const Prefix = "MATCHBOOK_"

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PGDSN       string `env:"PG_DSN"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	AuthSecret         string        `env:"AUTH_SECRET,unset"`
	AuthIssuer         string        `env:"AUTH_ISSUER" envDefault:"matchbook"`
	AccessTTL          time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL         time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
	UniformLoginErrors bool          `env:"AUTH_UNIFORM_LOGIN_ERRORS" envDefault:"false"`

	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`
	CookieDomain string `env:"COOKIE_DOMAIN"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateBurst      int           `env:"RATE_BURST" envDefault:"20"`
	RatePerSecond  float64       `env:"RATE_PER_SECOND" envDefault:"10"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.TrustedProxies = trimAll(cfg.TrustedProxies)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every setting that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AuthSecret) == "" {
		errs = append(errs, fmt.Errorf("%sAUTH_SECRET is required", Prefix))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("%sBCRYPT_COST must be within [%d, %d]", Prefix, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sACCESS_TTL and %sREFRESH_TTL must be positive", Prefix, Prefix))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sREQUEST_TIMEOUT must be positive", Prefix))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("%sMAX_BODY_BYTES must be positive", Prefix))
	}
	if c.RatePerSecond < 0 || c.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("%sRATE_* must not be negative", Prefix))
	}
	if _, err := c.ProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProxyPrefixes parses TrustedProxies. Entries are CIDR ranges or single
// addresses.
func (c Config) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%sTRUSTED_PROXIES: %w", Prefix, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%sTRUSTED_PROXIES: %w", Prefix, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Secret returns the token signing secret wrapped against accidental logging.
func (c Config) Secret() *conceal.Text {
	return conceal.New(c.AuthSecret)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
