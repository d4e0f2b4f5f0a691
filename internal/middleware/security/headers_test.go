package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithHeaders(t *testing.T, cfg HeadersConfig, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="bill.pdf"`)
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	NewHeadersMiddleware(cfg).Middleware(next).ServeHTTP(rec, r)
	return rec
}

func TestHeadersMiddleware_APIResponses(t *testing.T) {
	rec := serveWithHeaders(t, DefaultHeadersConfig(), httptest.NewRequest(http.MethodGet, "/api/bills/c1", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Download-Options":      "noopen",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
		"Pragma":                  "no-cache",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'; sandbox",
		"Content-Disposition":     `attachment; filename="bill.pdf"`,
	}
	for name, value := range want {
		if got := rec.Header().Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}

	for _, name := range []string{
		"X-XSS-Protection",
		"Cross-Origin-Opener-Policy",
		"Cross-Origin-Embedder-Policy",
		"Cross-Origin-Resource-Policy",
		"Strict-Transport-Security",
	} {
		if got := rec.Header().Get(name); got != "" {
			t.Errorf("%s should not be set, got %q", name, got)
		}
	}
}

func TestHeadersMiddleware_CachingOutsideAPI(t *testing.T) {
	rec := serveWithHeaders(t, DefaultHeadersConfig(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("Cache-Control"); got != "" {
		t.Errorf("Cache-Control = %q outside /api/", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestHeadersMiddleware_HSTSOnlyOverTLS(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	r.TLS = &tls.ConnectionState{}
	rec := serveWithHeaders(t, DefaultHeadersConfig(), r)

	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}

	cfg := DefaultHeadersConfig()
	cfg.HSTSMaxAge = 0
	rec = serveWithHeaders(t, cfg, r)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS disabled but got %q", got)
	}
}
