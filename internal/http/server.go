package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/log"
	"tripledger/internal/middleware/ratelimit"
	"tripledger/internal/middleware/security"
	"tripledger/internal/middleware/trace"
	"tripledger/internal/settlement"
	"tripledger/internal/wizard"
)

const (
	settlementCacheSize = 128
	sessionCacheSize    = 1000
	sessionTTL          = 30 * time.Minute
	cacheSweepInterval  = time.Minute
	maxBodyBytes        = 1 << 20
)

// Ledger is what the handlers need from the ledger service.
type Ledger interface {
	Insert(ctx context.Context, sub core.Submission) bool
	ListPeriods(ctx context.Context) []core.Period
	Settle(ctx context.Context, p core.Period) (settlement.Settlement, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Currency  string
	CacheTTL  time.Duration
	Logger    *log.Logger
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	ledger   Ledger
	logger   *log.Logger
	currency string
	now      func() time.Time
	newID    func() string

	settlements *cache.LRUCache[settlement.Settlement]
	sessions    *cache.LRUCache[*wizard.Session]
	caches      *cache.Manager
	fill        singleflight.Group

	// generations counts invalidations per period. A fill caches its result
	// only if no invalidation happened while it was reading.
	genMu       sync.Mutex
	generations map[string]uint64

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
}

func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	s := &Server{
		ledger:      ledger,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		currency:    opts.Currency,
		now:         time.Now,
		newID:       trace.GenerateRequestID,
		settlements: cache.NewLRUCache[settlement.Settlement](settlementCacheSize, opts.CacheTTL),
		sessions:    cache.NewLRUCache[*wizard.Session](sessionCacheSize, sessionTTL, cache.WithSlidingExpiry()),
		caches:      cache.NewManager(),
		generations: make(map[string]uint64),
		limiter:     ratelimit.NewLimiter(opts.RateLimit),
	}
	s.caches.Register(s.settlements)
	s.caches.Register(s.sessions)
	s.caches.StartCleanup(cacheSweepInterval)

	ips := security.NewIPResolver()
	s.tracer = trace.NewMiddleware(opts.Logger, ips.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /periods", s.handleListPeriods)
	mux.HandleFunc("POST /periods", s.handleCreateBatch)
	mux.HandleFunc("GET /periods/{period}/settlement", s.handleSettlement)
	mux.HandleFunc("GET /periods/{period}/export.xlsx", s.handleExport)

	mux.HandleFunc("POST /wizard", s.handleWizardStart)
	mux.HandleFunc("GET /wizard/{id}", s.handleWizardView)
	mux.HandleFunc("POST /wizard/{id}/details", s.handleWizardDetails)
	mux.HandleFunc("POST /wizard/{id}/participants", s.handleWizardParticipants)
	mux.HandleFunc("POST /wizard/{id}/expenses", s.handleWizardExpenses)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(ips.ClientIP, s.onRateLimit)(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldPath, r.URL.Path,
		log.FieldMethod, r.Method)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ledger.Ping(ctx); err != nil {
		log.LogError(r.Context(), "Readiness check failed", err, log.ComponentHTTP, log.OpStartup, log.ErrorTypeDatabase, nil)
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// getSettlement serves from cache and collapses concurrent misses for the same
// period into one store read.
func (s *Server) getSettlement(ctx context.Context, p core.Period) (settlement.Settlement, error) {
	p = p.Canonical()
	key := p.String()
	if cached, ok := s.settlements.Get(key); ok {
		return cached, nil
	}

	v, err, shared := s.fill.Do(key, func() (any, error) {
		s.genMu.Lock()
		gen := s.generations[key]
		s.genMu.Unlock()

		result, err := s.ledger.Settle(ctx, p)
		if err != nil {
			return settlement.Settlement{}, err
		}

		s.genMu.Lock()
		if s.generations[key] == gen {
			s.settlements.Set(key, result)
		}
		s.genMu.Unlock()
		return result, nil
	})
	if shared {
		s.logger.DebugContext(ctx, "Settlement load shared", log.FieldPeriod, key)
	}
	if err != nil {
		return settlement.Settlement{}, err
	}
	return v.(settlement.Settlement), nil
}

// invalidateSettlement drops the cached settlement of p. A fill already in
// flight still answers its callers but will not repopulate the cache.
func (s *Server) invalidateSettlement(p core.Period) {
	key := p.Canonical().String()
	s.genMu.Lock()
	s.generations[key]++
	s.settlements.Delete(key)
	s.genMu.Unlock()
	s.fill.Forget(key)
}

// writeSettlementError maps Settle failures onto 404 or 500.
func writeSettlementError(w http.ResponseWriter, r *http.Request, p core.Period, op string, err error) {
	if errors.Is(err, settlement.ErrNoData) {
		writeError(w, http.StatusNotFound, "no data")
		return
	}
	log.LogError(r.Context(), "Failed to settle period", err, log.ComponentHTTP, op, log.ErrorTypeInternal,
		log.NewFields().WithPeriod(p.String()))
	writeError(w, http.StatusInternalServerError, "failed to settle period")
}
