package http

import (
	"context"
	"net/http"
	"time"

	"spesefx/internal/cache"
	"spesefx/internal/core"
	"spesefx/internal/log"
	"spesefx/internal/middleware/ratelimit"
	"spesefx/internal/middleware/security"
	"spesefx/internal/middleware/trace"
)

// ExpenseSaver runs a candidate through normalization and persistence.
type ExpenseSaver interface {
	Save(ctx context.Context, candidate core.CandidateExpense) (core.NormalizedExpense, error)
}

// Listing is the cached expense list.
type Listing interface {
	Current() cache.Snapshot
	Refresh(ctx context.Context) ([]core.NormalizedExpense, error)
}

// Options configures the HTTP boundary.
type Options struct {
	Addr              string
	ReferenceCurrency string
	// WritesPerMinute limits POST requests per client; 0 uses the limiter default.
	WritesPerMinute int
	Logger          *log.Logger
}

type Server struct {
	http.Server
	expenses  ExpenseSaver
	listing   Listing
	reference string
	limiter   *ratelimit.Limiter
	logger    *log.Logger
}

func NewServer(opts Options, expenses ExpenseSaver, listing Listing) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16, // 64KB
		},
		expenses:  expenses,
		listing:   listing,
		reference: opts.ReferenceCurrency,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{Requests: opts.WritesPerMinute, Period: time.Minute}),
		logger:    logger,
	}

	clientIP := security.NewClientIP()
	limitWrites := s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /options", s.handleOptions)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.Handle("POST /expenses", limitWrites(http.HandlerFunc(s.handleCreateExpense)))
	mux.Handle("POST /expenses/refresh", limitWrites(http.HandlerFunc(s.handleRefreshExpenses)))

	var h http.Handler = mux
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.AccessLog(h)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = log.Middleware(logger)(h)
	h = trace.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the listener and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
