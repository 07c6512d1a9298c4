package portal

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"libranexus/internal/auth"
	"libranexus/internal/cart"
	"libranexus/internal/clients"
	"libranexus/internal/storage"
)

const initTimeout = 10 * time.Second

// ipLoginFactor scales the per-client login budget for a whole remote
// address, which may sit in front of many clients.
const ipLoginFactor = 10

// Session is the state of one browser client: its auth store, its cart and
// a login limiter. Everything durable lives in storage under the client's
// scope, so a Session can be dropped and rebuilt at any time.
type Session struct {
	ClientID string
	Auth     auth.Service
	Cart     cart.Service

	logins   *rate.Limiter
	lastSeen time.Time
}

// Registry hands out Sessions by client id.
type Registry struct {
	store   storage.Store
	lib     *clients.Library
	log     *zap.Logger
	idleTTL time.Duration
	perMin  int
	now     func() time.Time

	inits sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	addrs    map[string]*addrLimiter
}

type addrLimiter struct {
	logins   *rate.Limiter
	lastSeen time.Time
}

func NewRegistry(store storage.Store, lib *clients.Library, idleTTL time.Duration, loginsPerMinute int, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		store:    store,
		lib:      lib,
		log:      log.Named("sessions"),
		idleTTL:  idleTTL,
		perMin:   loginsPerMinute,
		now:      time.Now,
		sessions: make(map[string]*Session),
		addrs:    make(map[string]*addrLimiter),
	}
}

// Get returns the session for clientID, creating it on first use. A new
// session restores its state in the background; until that finishes its
// auth snapshot reports Initializing.
func (r *Registry) Get(clientID string) *Session {
	r.mu.Lock()
	if s, ok := r.sessions[clientID]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s
	}

	scoped := storage.Scoped(r.store, "client:"+clientID)
	log := r.log.With(zap.String("client_id", clientID))
	c := cart.NewService(scoped, r.lib.Transactions, log)
	s := &Session{
		ClientID: clientID,
		Auth:     auth.NewService(scoped, r.lib.Auth, c, log),
		Cart:     c,
		logins:   rate.NewLimiter(rate.Limit(float64(r.perMin)/60), r.perMin),
		lastSeen: r.now(),
	}
	r.sessions[clientID] = s
	r.inits.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inits.Done()
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		if err := s.Cart.Initialize(ctx); err != nil {
			log.Warn("cart load failed", zap.Error(err))
		}
		if err := s.Auth.Initialize(ctx); err != nil {
			log.Warn("session restore failed", zap.Error(err))
		}
	}()
	return s
}

// AllowLogin spends one login attempt from the client's budget and one from
// the budget of its remote address. Dropping the client id cookie gets a new
// session but not a new address budget.
func (r *Registry) AllowLogin(s *Session, remoteAddr string) bool {
	if !s.logins.Allow() {
		return false
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addrs[host]
	if !ok {
		burst := r.perMin * ipLoginFactor
		a = &addrLimiter{logins: rate.NewLimiter(rate.Limit(float64(burst)/60), burst)}
		r.addrs[host] = a
	}
	a.lastSeen = r.now()
	return a.logins.Allow()
}

// Len reports how many sessions are in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions and address budgets idle for longer than the idle TTL
// and returns how many sessions went.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	for host, a := range r.addrs {
		if a.lastSeen.Before(cutoff) {
			delete(r.addrs, host)
		}
	}
	if n > 0 {
		r.log.Debug("evicted idle sessions", zap.Int("count", n), zap.Int("remaining", len(r.sessions)))
	}
	return n
}

// Run sweeps periodically until ctx is done, then waits for pending
// restores.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Wait()
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Wait blocks until every background restore has finished.
func (r *Registry) Wait() {
	r.inits.Wait()
}
