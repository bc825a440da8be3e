package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersSetOnTLSRequest(t *testing.T) {
	mw := Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "https://pos.example", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	got := rr.Result().Header
	if got.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff, got %q", got.Get("X-Content-Type-Options"))
	}
	if got.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing frame denial, got %q", got.Get("X-Frame-Options"))
	}
	want := "max-age=31536000; includeSubDomains"
	if got.Get("Strict-Transport-Security") != want {
		t.Fatalf("expected hsts %q, got %q", want, got.Get("Strict-Transport-Security"))
	}
}

func TestHeadersSkipHSTSWithoutTLS(t *testing.T) {
	mw := Headers{Enable: true, EnableHSTS: true}
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://pos.example", nil))
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("hsts must not be set on plain http")
	}
}

func TestHeadersDisabled(t *testing.T) {
	handler := Headers{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://pos.example", nil))
	if rr.Header().Get("X-Content-Type-Options") != "" {
		t.Fatal("expected no headers when disabled")
	}
}
