// internal/auth/implementation.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"libranexus/internal/clients"
	"libranexus/internal/membership"
	"libranexus/internal/storage"
)

type service struct {
	store   storage.Store
	backend Backend
	cart    CartClearer
	log     *zap.Logger

	// initMu serializes restores. restored is set once a restore succeeds or
	// a login or logout has decided the state.
	initMu   sync.Mutex
	restored atomic.Bool

	mu    sync.Mutex
	state State
	// version changes on every committed login or logout; logouts only on
	// logout. Both let work that ran unlocked detect that it went stale.
	version uint64
	logouts uint64
}

// NewService returns a store that starts out initializing. cart may be nil.
func NewService(store storage.Store, backend Backend, cart CartClearer, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		store:   store,
		backend: backend,
		cart:    cart,
		log:     log.Named("auth"),
		state:   State{Initializing: true},
	}
}

func (s *service) Initialize(ctx context.Context) error {
	if s.restored.Load() {
		return nil
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.restored.Load() {
		return nil
	}
	if err := s.restore(ctx); err != nil {
		return err
	}
	s.restored.Store(true)
	return nil
}

func (s *service) restore(ctx context.Context) error {
	s.mu.Lock()
	seen := s.version
	s.mu.Unlock()

	identity, token, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Initializing = false
	if err != nil {
		s.log.Warn("restore session", zap.Error(err))
		return fmt.Errorf("restore session: %w", err)
	}
	if s.version != seen {
		// A login or logout finished first and already owns the state.
		return nil
	}
	if identity != nil {
		s.state.Identity = identity
		s.state.Token = token
		s.log.Debug("session restored", zap.String("user_id", identity.ID), zap.String("role", string(identity.Role)))
	} else {
		s.log.Debug("no session to restore")
	}
	return nil
}

// load reads the persisted pair. A missing, partial or undecodable pair is
// reported as no session and wiped from storage.
func (s *service) load(ctx context.Context) (*membership.User, string, error) {
	rawUser, hasUser, err := s.store.Read(ctx, KeyUser)
	if err != nil {
		return nil, "", err
	}
	token, hasToken, err := s.store.Read(ctx, KeyToken)
	if err != nil {
		return nil, "", err
	}
	if !hasUser && !hasToken {
		return nil, "", nil
	}

	identity, decodeErr := decodeIdentity(rawUser)
	if hasUser && hasToken && token != "" && decodeErr == nil {
		return identity, token, nil
	}

	s.log.Warn("discarding malformed session",
		zap.Bool("has_user", hasUser),
		zap.Bool("has_token", hasToken),
		zap.NamedError("decode", decodeErr),
	)
	if err := s.wipe(ctx); err != nil {
		s.log.Warn("wipe malformed session", zap.Error(err))
	}
	return nil, "", nil
}

func decodeIdentity(raw string) (*membership.User, error) {
	var u membership.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, errors.New("identity has no id")
	}
	if _, err := membership.ParseRole(string(u.Role)); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*membership.User, error) {
	return s.login(ctx, "login", s.backend.Login, email, password, false)
}

func (s *service) LoginAdmin(ctx context.Context, email, password string) (*membership.User, error) {
	return s.login(ctx, "login_admin", s.backend.LoginAdmin, email, password, true)
}

type loginFunc func(context.Context, membership.Credentials) (*membership.LoginResponse, error)

func (s *service) login(ctx context.Context, op string, call loginFunc, email, password string, adminOnly bool) (*membership.User, error) {
	s.mu.Lock()
	logouts := s.logouts
	s.mu.Unlock()

	resp, err := call(ctx, membership.Credentials{Email: email, Password: password})
	if err != nil {
		s.log.Warn("login failed", zap.String("op", op), zap.String("email", email), zap.Error(err))
		return nil, &Error{Op: op, Message: clients.Message(err, "Login failed"), Err: err}
	}

	identity, err := identityFrom(resp)
	if err != nil {
		s.log.Warn("login response rejected", zap.String("op", op), zap.Error(err))
		return nil, &Error{Op: op, Message: "Login failed", Err: err}
	}
	if adminOnly && !identity.IsAdmin() {
		s.log.Warn("non-admin identity from admin login", zap.String("user_id", identity.ID))
		return nil, &Error{Op: op, Message: "Access denied: admin account required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logouts != logouts {
		s.log.Debug("login superseded by logout", zap.String("user_id", identity.ID))
		return nil, ErrSuperseded
	}
	if err := s.persist(ctx, identity, resp.Token); err != nil {
		s.log.Warn("persist session", zap.Error(err))
		return nil, &Error{Op: op, Message: "Could not save the session", Err: err}
	}
	s.state.Identity = identity
	s.state.Token = resp.Token
	s.state.Initializing = false
	s.version++
	s.restored.Store(true)

	s.log.Debug("logged in", zap.String("op", op), zap.String("user_id", identity.ID), zap.String("role", string(identity.Role)))
	u := *identity
	return &u, nil
}

func identityFrom(resp *membership.LoginResponse) (*membership.User, error) {
	if resp == nil || resp.Token == "" {
		return nil, errors.New("login response has no token")
	}
	if resp.ID == "" {
		return nil, errors.New("login response has no user id")
	}
	role, err := membership.ParseRole(resp.Role)
	if err != nil {
		return nil, err
	}
	return &membership.User{ID: resp.ID, Email: resp.Email, Name: resp.Name, Role: role}, nil
}

// persist writes identity and token as a pair. If the token write fails the
// identity key is put back the way it was. Caller holds s.mu.
func (s *service) persist(ctx context.Context, identity *membership.User, token string) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.store.Write(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", KeyUser, err)
	}
	if err := s.store.Write(ctx, KeyToken, token); err != nil {
		if rbErr := s.rollbackUser(ctx); rbErr != nil {
			return errors.Join(fmt.Errorf("write %s: %w", KeyToken, err), fmt.Errorf("rollback %s: %w", KeyUser, rbErr))
		}
		return fmt.Errorf("write %s: %w", KeyToken, err)
	}
	return nil
}

func (s *service) rollbackUser(ctx context.Context) error {
	if s.state.Identity == nil {
		return s.store.Remove(ctx, KeyUser)
	}
	raw, err := json.Marshal(s.state.Identity)
	if err != nil {
		return err
	}
	return s.store.Write(ctx, KeyUser, string(raw))
}

func (s *service) Logout(ctx context.Context) error {
	s.mu.Lock()
	var userID string
	if s.state.Identity != nil {
		userID = s.state.Identity.ID
	}
	s.state.Identity = nil
	s.state.Token = ""
	s.state.Initializing = false
	s.version++
	s.logouts++
	err := s.wipe(ctx)
	if err == nil {
		s.restored.Store(true)
	}
	s.mu.Unlock()

	if s.cart != nil {
		if cartErr := s.cart.Clear(ctx); cartErr != nil {
			err = errors.Join(err, fmt.Errorf("clear cart: %w", cartErr))
		}
	}
	if err != nil {
		s.log.Warn("logout incomplete", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.log.Debug("logged out", zap.String("user_id", userID))
	return nil
}

func (s *service) wipe(ctx context.Context) error {
	return errors.Join(s.store.Remove(ctx, KeyUser), s.store.Remove(ctx, KeyToken))
}

func (s *service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Identity != nil {
		u := *st.Identity
		st.Identity = &u
	}
	return st
}
