package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"testing"
)

func TestClientIPIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	c := NewClientIP()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := c.Resolve(req); got != "203.0.113.7" {
		t.Fatalf("expected peer address, got %q", got)
	}
}

func TestClientIPHonorsTrustedProxies(t *testing.T) {
	c := NewClientIP(netip.MustParsePrefix("10.0.0.0/8"))

	cases := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{name: "single hop", remote: "10.0.0.1:80", xff: []string{"198.51.100.1"}, want: "198.51.100.1"},
		{name: "client prepends spoof", remote: "10.0.0.1:80", xff: []string{"1.2.3.4, 198.51.100.1"}, want: "198.51.100.1"},
		{name: "trusted chain", remote: "10.0.0.1:80", xff: []string{"198.51.100.1, 10.1.1.1"}, want: "198.51.100.1"},
		{name: "repeated headers", remote: "10.0.0.1:80", xff: []string{"1.2.3.4", "198.51.100.1"}, want: "198.51.100.1"},
		{name: "no header", remote: "10.0.0.1:80", want: "10.0.0.1"},
		{name: "garbage hop", remote: "10.0.0.1:80", xff: []string{"not-an-ip"}, want: "10.0.0.1"},
		{name: "untrusted peer", remote: "192.0.2.9:80", xff: []string{"198.51.100.1"}, want: "192.0.2.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if got := c.Resolve(req); got != tc.want {
				t.Fatalf("Resolve = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitNotBypassedByRotatingForwardedFor(t *testing.T) {
	handler := RateLimit(okHandler(), 1, 0.001, NewClientIP().Resolve)

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil).Clone(context.Background())
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 49 {
		t.Fatalf("expected 49 limited requests, got %d", limited)
	}
}
