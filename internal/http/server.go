// Package http exposes the till as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"caisse/internal/log"
	"caisse/internal/middleware/ratelimit"
	"caisse/internal/middleware/security"
	"caisse/internal/middleware/trace"
	"caisse/internal/screens"
	"caisse/internal/terminal"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr     string
	Terminal *terminal.Terminal
	History  screens.History
	// Pinger backs /readyz. Nil means always ready.
	Pinger    Pinger
	Methods   []string
	Actions   screens.Actions
	Logger    *log.Logger
	RateLimit ratelimit.Config
}

// Server owns the terminal. Every handler that touches it holds mu, so
// the single-owner session sees one operation at a time.
type Server struct {
	http.Server

	mu      sync.Mutex
	till    *terminal.Terminal
	flows   *screens.Flows
	popup   *popupPresenter
	history screens.History
	pinger  Pinger
	methods []string
	logger  *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	methods := opts.Methods
	if len(methods) == 0 {
		methods = screens.DefaultMethods
	}

	s := &Server{
		till:     opts.Terminal,
		popup:    &popupPresenter{},
		history:  opts.History,
		pinger:   opts.Pinger,
		methods:  methods,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.flows = screens.New(screens.Config{
		Till:      opts.Terminal,
		History:   opts.History,
		Presenter: s.popup,
		Methods:   methods,
		Actions:   opts.Actions,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/keys", s.handleKeys)
	mux.HandleFunc("POST /api/multiply", s.handleMultiply)
	mux.HandleFunc("POST /api/mercurial", s.handleMercurial)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/cart/lines", s.handleAddLine)
	mux.HandleFunc("DELETE /api/cart/lines/{i}", s.handleDeleteLine)
	mux.HandleFunc("DELETE /api/cart", s.handleClearCart)
	mux.HandleFunc("POST /api/pay", s.handlePay)
	mux.HandleFunc("POST /api/park", s.handlePark)
	mux.HandleFunc("POST /api/currency", s.handleCurrency)

	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("POST /api/transactions/{i}/edit", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{t}/lines/{l}", s.handleDeleteTransactionLine)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{date}/categories/{category}", s.handleCategoryDetail)

	mux.HandleFunc("GET /api/popup", s.handlePopup)
	mux.HandleFunc("DELETE /api/popup", s.handlePopupDismiss)
	mux.HandleFunc("POST /api/popup/select", s.handlePopupSelect)
	mux.HandleFunc("POST /api/popup/destroy", s.handlePopupDestroy)
	mux.HandleFunc("POST /api/popup/{flow}", s.handlePopupOpen)

	secLogger := logger.WithComponent(log.ComponentSecurity)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldComponent, log.ComponentRateLimit, log.FieldClientIP, s.detector.ExtractClientIP(r))
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
	suspicious := s.detector.Middleware(func(r *http.Request) {
		secLogger.WarnContext(r.Context(), "Suspicious request rejected",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path,
			log.FieldUserAgent, r.Header.Get("User-Agent"))
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(suspicious(headers.Middleware(limit(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and the HTTP server. The terminal is
// left to its owner.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withTill runs fn while holding the terminal.
func (s *Server) withTill(fn func(t *terminal.Terminal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.till)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Storage not ready", log.FieldError, err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
