package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/trace"

	"golang.org/x/sync/singleflight"
)

// DashboardAPI is the slice of the engine the HTTP layer calls.
type DashboardAPI interface {
	GetDashboard(ctx context.Context, year, month int) (*core.DashboardResult, error)
	SetFixedExpensePaid(ctx context.Context, expenseID int64, month, year int, paid bool) (core.FixedExpensePayment, error)
}

// Options configures the optional layers around the engine.
type Options struct {
	Logger *log.Logger
	// Ready backs /readyz. Nil means always ready.
	Ready func(context.Context) error
	// CacheTTL of zero disables the dashboard cache.
	CacheTTL  time.Duration
	CacheSize int
	// WriteRateLimit is requests per minute per client on POST routes;
	// zero disables it.
	WriteRateLimit int
}

type Server struct {
	http.Server
	dashboard DashboardAPI
	ready     func(context.Context) error
	logger    *log.StructuredLogger
	now       func() time.Time

	cache        cache.Cache[*core.DashboardResult]
	cacheManager *cache.Manager
	// generation is bumped on every invalidation so a computation that
	// started before a write does not repopulate the cache with stale data.
	generation atomic.Uint64
	flights    singleflight.Group
	flightMu   sync.Mutex
	inflight   map[string]*flight
	flightSeq  uint64

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, dashboard DashboardAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dashboard: dashboard,
		ready:     opts.Ready,
		logger:    log.NewStructuredLogger(logger),
		now:       time.Now,
		inflight:  make(map[string]*flight),
	}

	if opts.CacheTTL > 0 && opts.CacheSize > 0 {
		lru := cache.NewLRUCache[*core.DashboardResult](opts.CacheSize, opts.CacheTTL)
		s.cache = lru
		s.cacheManager = cache.NewManager()
		s.cacheManager.Register(lru)
		s.cacheManager.StartCleanup(opts.CacheTTL)
	}

	writes := func(h http.Handler) http.Handler { return h }
	if opts.WriteRateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: opts.WriteRateLimit,
			Window:            time.Minute,
		})
		writes = s.limiter.Middleware(extractClientIP)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.Handle("POST /fixed-expenses/{id}/paid", writes(http.HandlerFunc(s.handleSetPaid)))

	s.tracer = trace.NewMiddleware(extractClientIP, s.logger)
	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s
}

func dashboardKey(year, month int) string {
	return "dashboard:" + core.MonthKey(year, month)
}

// InvalidateYear drops cached dashboards of year. The monthly series spans
// the whole year, so every month of it is affected by a write.
func (s *Server) InvalidateYear(year int) int {
	s.generation.Add(1)
	if s.cache == nil {
		return 0
	}
	prefix := fmt.Sprintf("dashboard:%d-", year)
	n := s.cache.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
	slog.Debug("Dashboard cache invalidated",
		"year", year,
		"removed", n,
		"cached", s.cache.Size(),
		"evictions", s.cache.Evictions())
	return n
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, hit, err := s.loadDashboard(r.Context(), year, month)
	if err != nil {
		if r.Context().Err() != nil {
			slog.DebugContext(r.Context(), "Client went away before the dashboard was ready", "year", year, "month", month)
			return
		}
		writeError(w, r, err)
		return
	}
	s.logger.LogDashboardServed(r.Context(), year, month, hit)
	writeJSON(w, r, http.StatusOK, result)
}

// flight is one shared dashboard computation. Its context is cancelled
// once every caller waiting on it has gone.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (s *Server) joinFlight(ctx context.Context, key string) *flight {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	f, ok := s.inflight[key]
	if !ok {
		s.flightSeq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{key: fmt.Sprintf("%s#%d", key, s.flightSeq), ctx: fctx, cancel: cancel}
		s.inflight[key] = f
	}
	f.waiters++
	return f
}

func (s *Server) leaveFlight(key string, f *flight) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.inflight[key] == f {
		delete(s.inflight, key)
	}
}

// loadDashboard serves from cache or computes once for all concurrent
// callers asking for the same month. The computation stops when the last
// of those callers goes away.
func (s *Server) loadDashboard(ctx context.Context, year, month int) (*core.DashboardResult, bool, error) {
	key := dashboardKey(year, month)
	if s.cache != nil {
		if result, ok := s.cache.Get(key); ok {
			return result, true, nil
		}
	}

	gen := s.generation.Load()
	f := s.joinFlight(ctx, key)
	defer s.leaveFlight(key, f)

	ch := s.flights.DoChan(f.key, func() (any, error) {
		result, err := s.dashboard.GetDashboard(f.ctx, year, month)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && s.generation.Load() == gen {
			s.cache.Set(key, result)
		}
		return result, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*core.DashboardResult), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	id, year, month, paid, err := parsePaidRequest(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	payment, err := s.dashboard.SetFixedExpensePaid(r.Context(), id, month, year, paid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.InvalidateYear(year)
	s.logger.LogPaymentUpdated(r.Context(), id, year, month, paid)

	writeJSON(w, r, http.StatusOK, newPaymentResponse(payment))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.Header().Set("Retry-After", "5")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
