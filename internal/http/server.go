package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"milkledger/internal/cache"
	"milkledger/internal/log"
	"milkledger/internal/middleware/ratelimit"
	"milkledger/internal/middleware/security"
	"milkledger/internal/middleware/trace"
	"milkledger/internal/services"
)

const cacheCleanupInterval = 10 * time.Minute

// Options tunes the server. Zero values use defaults.
type Options struct {
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
}

// Server is the JSON API over the ledger service.
type Server struct {
	http.Server
	svc      *services.LedgerService
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		svc:      svc,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		caches:   cache.NewManager(),
		started:  time.Now(),
	}
	svc.RegisterCaches(s.caches)
	s.caches.StartCleanup(cacheCleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutationsOnly, s.rateLimited)(handler)
	handler = s.flagSuspicious(handler)
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	mux.HandleFunc("POST /api/customers", s.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers/{id}", s.handleGetCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", s.handleUpdateCustomer)
	mux.HandleFunc("DELETE /api/customers/{id}", s.handleDeleteCustomer)
	mux.HandleFunc("GET /api/customers/{id}/month", s.handleCustomerMonth)
	mux.HandleFunc("GET /api/customers/{id}/bill.pdf", s.handleCustomerBill)

	mux.HandleFunc("GET /api/deliveries/recent", s.handleRecent)
	mux.HandleFunc("GET /api/deliveries/{date}", s.handleGetDay)
	mux.HandleFunc("PUT /api/deliveries/{date}", s.handleSaveDay)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/summary/today", s.handleToday)

	mux.HandleFunc("GET /api/reports/month", s.handleMonthReport)
	mux.HandleFunc("GET /api/reports/month.pdf", s.handleMonthPDF)
	mux.HandleFunc("GET /api/reports/month.csv", s.handleMonthCSV)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)
	mux.HandleFunc("GET /api/storage", s.handleStorageInfo)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handlePrepareImport)
	mux.HandleFunc("POST /api/import/{token}/confirm", s.handleConfirmImport)
	mux.HandleFunc("DELETE /api/import/{token}", s.handleCancelImport)
	mux.HandleFunc("DELETE /api/data", s.handleClearAll)
}

// flagSuspicious logs requests that look like scans and lets them continue
// to the router, which answers 404.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
