// internal/cart/implementation.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
	"libranexus/internal/storage"
)

const dateLayout = "2006-01-02"

type service struct {
	store     storage.Store
	submitter Submitter
	log       *zap.Logger
	mutations metric.Int64Counter

	// initMu serializes loads and is taken before mu.
	initMu sync.Mutex
	loaded bool

	mu      sync.Mutex
	entries []Entry
}

// NewService returns an empty cart over store. submitter may be nil when the
// caller never checks out.
func NewService(store storage.Store, submitter Submitter, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &service{
		store:     store,
		submitter: submitter,
		log:       log.Named("cart"),
	}
	counter, err := otel.Meter("libranexus/cart").Int64Counter(
		"cart.mutations",
		metric.WithDescription("Cart add, remove and clear operations"),
	)
	if err == nil {
		s.mutations = counter
	}
	return s
}

func (s *service) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.loaded {
		return nil
	}

	entries, err := s.load(ctx)
	if err != nil {
		s.log.Warn("read cart", zap.Error(err))
		return fmt.Errorf("%w: read %s: %w", ErrNotLoaded, Key, err)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.loaded = true
	s.log.Debug("cart loaded", zap.Int("items", len(entries)))
	return nil
}

// load returns an error only when storage could not be read. Absent or
// undecodable data is an empty cart.
func (s *service) load(ctx context.Context) ([]Entry, error) {
	raw, ok, err := s.store.Read(ctx, Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.Warn("discarding corrupt cart", zap.Error(err))
		return nil, nil
	}

	// Keep the set invariant even if storage was edited by hand.
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, book catalog.Book) error {
	if book.ID == "" {
		return &ValidationError{Field: "id", Message: "book has no id"}
	}
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(book.ID) >= 0 {
		return nil
	}
	s.entries = append(s.entries, EntryFrom(book))
	s.count(ctx, "add")
	return s.persist(ctx)
}

func (s *service) Remove(ctx context.Context, id string) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	s.count(ctx, "remove")
	return s.persist(ctx)
}

// Clear does not need the stored cart, so it works even while loading fails.
// A successful removal counts as a load of the empty cart.
func (s *service) Clear(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.count(ctx, "clear")
	if err := s.store.Remove(ctx, Key); err != nil {
		return fmt.Errorf("remove %s: %w", Key, err)
	}
	s.loaded = true
	return nil
}

func (s *service) IsInCart(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

func (s *service) Items() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *service) Submit(ctx context.Context, c Checkout) (*circulation.CreateResponse, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	if s.submitter == nil {
		return nil, fmt.Errorf("cart: no submitter configured")
	}

	entries := s.Items()
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	req := circulation.CreateRequest{
		UserID:          c.UserID,
		Items:           make([]circulation.Item, 0, len(entries)),
		TotalFee:        0,
		PaymentMethod:   c.PaymentMethod,
		PaymentEvidence: c.PaymentEvidence,
		DateFrom:        c.DateFrom,
		DateTo:          c.DateTo,
	}
	for _, e := range entries {
		req.Items = append(req.Items, e.item())
	}

	resp, err := s.submitter.Create(ctx, req)
	if err != nil {
		s.log.Warn("borrow request failed", zap.String("user_id", c.UserID), zap.Int("items", len(entries)), zap.Error(err))
		return nil, fmt.Errorf("submit borrow request: %w", err)
	}

	// The transaction exists now; a failure to clear must not hide that.
	if err := s.Clear(ctx); err != nil {
		s.log.Warn("clear cart after checkout", zap.Error(err))
	}
	s.log.Info("borrow request submitted", zap.String("user_id", c.UserID), zap.String("invoice", resp.Data), zap.Int("items", len(entries)))
	return resp, nil
}

func (c Checkout) validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return &ValidationError{Field: "userId", Message: "sign in before borrowing"}
	}
	if strings.TrimSpace(c.PaymentMethod) == "" {
		return &ValidationError{Field: "paymentMethod", Message: "choose a payment method"}
	}
	if c.DateFrom == "" || c.DateTo == "" {
		return &ValidationError{Field: "dateRange", Message: "pick both a start and an end date"}
	}
	from, err := time.Parse(dateLayout, c.DateFrom)
	if err != nil {
		return &ValidationError{Field: "dateFrom", Message: "expected YYYY-MM-DD"}
	}
	to, err := time.Parse(dateLayout, c.DateTo)
	if err != nil {
		return &ValidationError{Field: "dateTo", Message: "expected YYYY-MM-DD"}
	}
	if to.Before(from) {
		return &ValidationError{Field: "dateTo", Message: "end date is before start date"}
	}
	return nil
}

// indexOf needs s.mu held.
func (s *service) indexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the whole cart. Caller holds s.mu.
func (s *service) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.store.Write(ctx, Key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", Key, err)
	}
	return nil
}

func (s *service) count(ctx context.Context, op string) {
	if s.mutations != nil {
		s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}
