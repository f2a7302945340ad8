package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shoenig/go-conceal"
	"golang.org/x/crypto/bcrypt"

	"matchbook.org/internal/account"
	"matchbook.org/internal/auth"
	"matchbook.org/internal/ids"
)

var errBoom = errors.New("db exploded")

type apiClient struct {
	baseURL string
	client  *http.Client
	store   *account.MemoryStore
	issuer  *auth.Issuer
	t       *testing.T
}

type response struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

func newTestAPI(t *testing.T, opts ...Option) *apiClient {
	t.Helper()

	store := account.NewMemoryStore()
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	issuer, err := auth.NewIssuer(conceal.New("test-secret"))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	svc, err := account.NewService(store, hasher, issuer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	opts = append([]Option{WithRateLimit(100, 100), WithCookies(CookieSettings{})}, opts...)
	api := New(ReadyProbe{}, "test", svc, issuer, opts...)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		store:   store,
		issuer:  issuer,
		t:       t,
	}
}

func (c *apiClient) post(path string, body any) *http.Response {
	c.t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("marshal body: %v", err)
	}
	return c.postRaw(path, payload)
}

func (c *apiClient) postRaw(path string, payload []byte) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, headers map[string]string, cookies ...*http.Cookie) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) register(body map[string]any) {
	c.t.Helper()
	resp := c.post("/register", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register: unexpected status %d", resp.StatusCode)
	}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func readBody(t *testing.T, r *http.Response) string {
	t.Helper()
	defer r.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return buf.String()
}

func asha() map[string]any {
	return map[string]any{
		"firstName": "Asha",
		"lastName":  "Rao",
		"email":     "a@x.com",
		"password":  "secret1",
		"religion":  "Hindu",
		"tags":      []string{"premium"},
		"spouseExpctation": map[string]any{
			"minAge": 25,
		},
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterCreatesUser(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/register", asha())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if strings.Contains(body, "secret1") || strings.Contains(body, "$2a$") || strings.Contains(body, "password") {
		t.Fatalf("response leaks credentials: %s", body)
	}

	var out response
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.Message != "User registered successfully" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	var data registerData
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data != (registerData{FirstName: "Asha", LastName: "Rao", Email: "a@x.com"}) {
		t.Fatalf("unexpected data: %+v", data)
	}
	if api.store.Len() != 1 {
		t.Fatalf("expected one stored user, got %d", api.store.Len())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	api.register(asha())

	again := asha()
	again["email"] = "A@X.COM"
	again["password"] = "another1"
	resp := api.post("/register", again)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	out := decode[response](t, resp)
	if out.Success || out.Message != "User already exists" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	if api.store.Len() != 1 {
		t.Fatalf("duplicate created a second record: %d", api.store.Len())
	}
}

func TestRegisterRejectsInvalidBodies(t *testing.T) {
	api := newTestAPI(t)

	cases := map[string][]byte{
		"unknown field":    []byte(`{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret1","isAdmin":true}`),
		"missing password": []byte(`{"firstName":"A","lastName":"B","email":"a@x.com"}`),
		"malformed":        []byte(`{"firstName":`),
		"empty":            nil,
		"trailing data":    []byte(`{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret1"} {}`),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			resp := api.postRaw("/register", payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			out := decode[response](t, resp)
			if out.Success || out.Message == "" {
				t.Fatalf("unexpected envelope: %+v", out)
			}
		})
	}
	if api.store.Len() != 0 {
		t.Fatalf("invalid bodies must not persist users")
	}
}

func TestLoginSuccessSetsCookies(t *testing.T) {
	api := newTestAPI(t)
	api.register(asha())

	resp := api.post("/login", map[string]any{"email": "a@x.com", "password": "secret1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	access := findCookie(resp, accessCookie)
	refresh := findCookie(resp, refreshCookie)
	if access == nil || refresh == nil {
		t.Fatalf("expected both session cookies, got %v", resp.Cookies())
	}
	if !access.HttpOnly || access.SameSite != http.SameSiteLaxMode || access.Path != "/" {
		t.Fatalf("unexpected access cookie attributes: %+v", access)
	}

	out := decode[response](t, resp)
	if !out.Success || out.Message != "User logged in successfully" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	var data loginData
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Name != "Asha Rao" || data.Email != "a@x.com" || !ids.Valid(data.UserID) {
		t.Fatalf("unexpected data: %+v", data)
	}
	if data.AccessToken != access.Value {
		t.Fatal("body token and cookie token differ")
	}
	claims, err := api.issuer.Parse(data.AccessToken, auth.KindAccess)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != data.UserID {
		t.Fatalf("token bound to %q, want %q", claims.Subject, data.UserID)
	}
	if _, err := api.issuer.Parse(refresh.Value, auth.KindRefresh); err != nil {
		t.Fatalf("refresh cookie does not verify: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.register(asha())

	resp := api.post("/login", map[string]any{"email": "a@x.com", "password": "wrong-one"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if len(resp.Cookies()) != 0 {
		t.Fatalf("failed login must not set cookies")
	}
	out := decode[response](t, resp)
	if out.Success || out.Message != "Invalid email or password" || len(out.Data) != 0 {
		t.Fatalf("unexpected envelope: %+v", out)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/login", map[string]any{"email": "nobody@x.com", "password": "secret1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	out := decode[response](t, resp)
	if out.Message != "User not found" {
		t.Fatalf("unexpected message: %q", out.Message)
	}
}

func TestProfileRequiresAccessToken(t *testing.T) {
	api := newTestAPI(t)
	api.register(asha())

	login := api.post("/login", map[string]any{"email": "a@x.com", "password": "secret1"})
	access := findCookie(login, accessCookie)
	refresh := findCookie(login, refreshCookie)
	_ = readBody(t, login)

	t.Run("bearer", func(t *testing.T) {
		resp := api.get("/profile", map[string]string{"Authorization": "Bearer " + access.Value})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		body := readBody(t, resp)
		if strings.Contains(body, "$2a$") || strings.Contains(strings.ToLower(body), "passwordhash") {
			t.Fatalf("profile leaks hash: %s", body)
		}
		var out response
		if err := json.Unmarshal([]byte(body), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var p account.Profile
		if err := json.Unmarshal(out.Data, &p); err != nil {
			t.Fatalf("decode profile: %v", err)
		}
		if out.Message != "User profile fetched successfully" || p.CultureAndReligiousInfo.Religion != "Hindu" {
			t.Fatalf("unexpected profile: %+v", out)
		}
	})

	t.Run("cookie", func(t *testing.T) {
		resp := api.get("/profile", nil, &http.Cookie{Name: accessCookie, Value: access.Value})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("missing", func(t *testing.T) {
		resp := api.get("/profile", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if resp.Header.Get("WWW-Authenticate") == "" {
			t.Fatal("expected WWW-Authenticate header")
		}
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		resp := api.get("/profile", map[string]string{"Authorization": "Bearer " + refresh.Value})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

func TestProfileUnknownUser(t *testing.T) {
	api := newTestAPI(t)
	tok, err := api.issuer.Issue(auth.Subject{UserID: ids.New()}, auth.KindAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	resp := api.get("/profile", map[string]string{"Authorization": "Bearer " + tok.Value})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	out := decode[response](t, resp)
	if out.Success || out.Message != "User not found" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil)
	health := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("unexpected health: %d %v", resp.StatusCode, health)
	}

	resp = api.get("/readyz", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/info", nil)
	info := decode[map[string]any](t, resp)
	if info["version"] != "test" {
		t.Fatalf("unexpected info: %v", info)
	}

	resp = api.get("/does-not-exist", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	out := decode[response](t, resp)
	if out.Success || out.RequestID == "" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
}

func TestLoginCookieAttributesFollowSettings(t *testing.T) {
	api := newTestAPI(t, WithCookies(CookieSettings{Secure: true, Domain: "example.com"}))
	api.register(asha())

	resp := api.post("/login", map[string]any{"email": "a@x.com", "password": "secret1"})
	defer resp.Body.Close()
	access := findCookie(resp, accessCookie)
	if access == nil || !access.Secure || access.Domain != "example.com" {
		t.Fatalf("unexpected cookie: %+v", access)
	}
	if access.MaxAge != int(api.issuer.TTL(auth.KindAccess).Seconds()) {
		t.Fatalf("unexpected max age: %d", access.MaxAge)
	}
}

func TestFailMapsUnexpectedErrors(t *testing.T) {
	a := &API{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	a.fail(rr, req, errBoom, http.StatusNotFound)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), errBoom.Error()) {
		t.Fatal("internal error detail must not reach the client")
	}
}
