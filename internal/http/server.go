package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"khata/internal/importer"
	"khata/internal/log"
	"khata/internal/middleware/compress"
	"khata/internal/middleware/ratelimit"
	"khata/internal/middleware/security"
	"khata/internal/middleware/trace"
	"khata/internal/services"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	// TrustedProxies are extra CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the JSON API over a LedgerService.
type Server struct {
	http.Server

	ledger   *services.LedgerService
	importer *importer.Importer
	logger   *log.Logger
	now      func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces the clock used for default years and export names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the server logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer wires the routes and middleware and returns a server ready to
// ListenAndServe.
func NewServer(cfg Config, ledger *services.LedgerService, im *importer.Importer, opts ...Option) (*Server, error) {
	s := &Server{
		ledger:   ledger,
		importer: im,
		logger:   log.DefaultLogger(),
		now:      time.Now,
		detector: security.NewDetector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	if s.importer == nil {
		s.importer = importer.New(importer.WithLogger(s.logger))
	}

	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// handler builds the router wrapped in the middleware chain. Tracing is
// outermost so every response, including rejections, is logged.
func (s *Server) handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	s.registerAccountRoutes(api)
	s.registerEntryRoutes(api)
	s.registerGoodInCartRoutes(api)
	s.registerReportRoutes(api)
	s.registerBackupRoutes(api)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)

	var h http.Handler = r
	h = limit(h)
	h = compress.Middleware(compress.DefaultConfig())(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	return h
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		ErrorResponse(http.StatusServiceUnavailable, "ledger not loaded").Write(w)
		return
	}
	data := s.ledger.State()
	NewResponse().Data(map[string]any{
		"status":   "ready",
		"accounts": len(data.Accounts),
		"entries":  len(data.LedgerEntries),
	}).Write(w)
}

// Metrics is a point in time view of the middleware counters.
type Metrics struct {
	Requests           int64 `json:"requests"`
	LastResponseMicros int64 `json:"lastResponseMicros"`
	RateLimited        int64 `json:"rateLimited"`
	ActiveClients      int   `json:"activeClients"`
	Suspicious         int64 `json:"suspicious"`
	Blocked            int64 `json:"blocked"`
}

// Metrics returns the middleware counters.
func (s *Server) Metrics() Metrics {
	tm := s.tracer.GetMetrics()
	dm := s.detector.GetMetrics()
	return Metrics{
		Requests:           tm.TotalRequests,
		LastResponseMicros: tm.LastResponseTime,
		RateLimited:        s.limiter.Hits(),
		ActiveClients:      s.limiter.ActiveClients(),
		Suspicious:         dm.SuspiciousRequests,
		Blocked:            dm.BlockedRequests,
	}
}

// Shutdown gracefully shuts down the server and drops rate limiter state.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
