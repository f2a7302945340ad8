package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/netip"
	"time"

	"matchbook.org/internal/account"
	"matchbook.org/internal/auth"
	"matchbook.org/internal/obs"
)

const serviceName = "matchbook-api"

// ReadyProbe checks that dependencies can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts *account.Service
	issuer   *auth.Issuer
	cookies  CookieSettings

	rateBurst      int
	ratePerSec     float64
	maxBodyBytes   int64
	requestTimeout time.Duration
	allowedOrigins []string
	clientIP       ClientIP
}

// Option configures API behavior.
type Option func(*API)

// WithCookies sets the attributes of the session cookies written at login.
func WithCookies(c CookieSettings) Option {
	return func(a *API) { a.cookies = c }
}

// WithRateLimit sets the per-client token bucket. perSecond <= 0 disables it.
func WithRateLimit(burst int, perSecond float64) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSec = perSecond
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// WithRequestTimeout bounds the work done for a single request.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.requestTimeout = d
		}
	}
}

// WithTrustedProxies lists the proxies whose X-Forwarded-For is believed when
// attributing requests to clients.
func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(a *API) { a.clientIP = NewClientIP(prefixes...) }
}

// WithAllowedOrigins lists the browser origins allowed by CORS.
func WithAllowedOrigins(origins ...string) Option {
	return func(a *API) { a.allowedOrigins = origins }
}

func New(rp ReadyProbe, version string, accounts *account.Service, issuer *auth.Issuer, opts ...Option) *API {
	a := &API{
		mux:            http.NewServeMux(),
		readyProbe:     rp,
		version:        version,
		accounts:       accounts,
		issuer:         issuer,
		cookies:        CookieSettings{Secure: true},
		rateBurst:      20,
		ratePerSec:     10,
		maxBodyBytes:   1 << 20,
		requestTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	// accounts
	a.mux.HandleFunc("POST /register", a.handleRegister)
	a.mux.HandleFunc("POST /login", a.handleLogin)
	a.mux.Handle("GET /profile", a.requireUser(http.HandlerFunc(a.handleProfile)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = Timeout(h, a.requestTimeout)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec, a.clientIP.Resolve)
	h = CORS(h, a.allowedOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.Logger().Warn("readiness check failed",
			"request_id", requestIDFrom(r), "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
