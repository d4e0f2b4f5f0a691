package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds the response headers for the JSON and file-download API.
type HeadersConfig struct {
	// Nothing is rendered from this origin; the policy forbids every fetch.
	CSP string

	ReferrerPolicy    string
	PermissionsPolicy string

	// HSTS settings, sent on TLS requests only
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// Responses under these path prefixes are never cached. Ledger data,
	// bills and exports all change with every write.
	NoStorePrefixes []string
}

// DefaultHeadersConfig returns the defaults for the ledger API.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:               "default-src 'none'; frame-ancestors 'none'; sandbox",
		ReferrerPolicy:    "no-referrer",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",

		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,

		NoStorePrefixes: []string{"/api/"},
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
	hsts   string
}

// NewHeadersMiddleware creates a new security headers middleware
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{config: config}
	if config.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()

	// Exports and PDFs are downloads; browsers must not sniff or open them inline.
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("X-Download-Options", "noopen")
	headers.Set("X-Frame-Options", "DENY")

	if h.config.CSP != "" {
		headers.Set("Content-Security-Policy", h.config.CSP)
	}
	if h.config.ReferrerPolicy != "" {
		headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
	}
	if h.config.PermissionsPolicy != "" {
		headers.Set("Permissions-Policy", h.config.PermissionsPolicy)
	}

	if h.noStore(r.URL.Path) {
		headers.Set("Cache-Control", "no-store")
		headers.Set("Pragma", "no-cache")
	}

	if r.TLS != nil && h.hsts != "" {
		headers.Set("Strict-Transport-Security", h.hsts)
	}
}

func (h *HeadersMiddleware) noStore(path string) bool {
	for _, prefix := range h.config.NoStorePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
