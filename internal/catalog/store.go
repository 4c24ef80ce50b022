// Package catalog holds the product store: the fetched catalog, the active
// filter criteria and the derived filtered view.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront-service/internal/domain"
)

// FeaturedSize is the length of the filter-independent featured subset.
const FeaturedSize = 10

// Source loads the full product catalog.
type Source interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

// Persister stores the product-store cache document.
type Persister interface {
	Save(ctx context.Context, snap Snapshot) error
}

// Snapshot is the persisted part of the store.
type Snapshot struct {
	Products []domain.Product `json:"products"`
	Criteria domain.Criteria  `json:"criteria"`
}

// State is a point-in-time copy of the store handed to readers and listeners.
type State struct {
	Products []domain.Product `json:"products"`
	Filtered []domain.Product `json:"filtered"`
	Criteria domain.Criteria  `json:"criteria"`
	Loading  bool             `json:"loading"`
	Error    string           `json:"error,omitempty"`
}

type Store struct {
	source    Source
	persister Persister
	logger    *slog.Logger
	sfg       singleflight.Group

	mu        sync.RWMutex
	products  []domain.Product
	criteria  domain.Criteria
	view      []domain.Product
	loading   bool
	lastError string

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewStore creates an empty store with default criteria. persister may be nil.
func NewStore(source Source, persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:    source,
		persister: persister,
		logger:    logger,
		criteria:  domain.DefaultCriteria(),
		subs:      make(map[int]func(State)),
	}
}

// FetchCatalog loads the catalog once per store. When products are already
// present it returns immediately without touching the source. Concurrent
// callers share one source call. The view is derived with the current
// criteria, which are the defaults unless filters were set before loading.
func (s *Store) FetchCatalog(ctx context.Context) error {
	s.mu.Lock()
	if len(s.products) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()
	s.notify()

	_, err, _ := s.sfg.Do("catalog", func() (interface{}, error) {
		products, err := s.source.FetchProducts(ctx)

		s.mu.Lock()
		s.loading = false
		if err != nil {
			s.lastError = err.Error()
		} else {
			s.products = append([]domain.Product(nil), products...)
			s.view = Filter(s.products, s.criteria)
			s.lastError = ""
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("catalog fetch failed", "error", err)
			return nil, err
		}
		s.logger.Info("catalog loaded", "products", len(products))
		s.persist(ctx)
		return nil, nil
	})
	s.notify()
	if err != nil {
		return fmt.Errorf("catalog: FetchCatalog failed: %w", err)
	}
	return nil
}

// SetFilters merges the patch into the current criteria and recomputes the
// filtered view from scratch.
func (s *Store) SetFilters(ctx context.Context, patch domain.CriteriaPatch) domain.Criteria {
	s.mu.Lock()
	s.criteria = s.criteria.Merge(patch)
	s.view = Filter(s.products, s.criteria)
	criteria := s.criteria
	s.mu.Unlock()

	s.persist(ctx)
	s.notify()
	return criteria
}

// Featured returns the first FeaturedSize catalog entries regardless of filters.
func (s *Store) Featured() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(FeaturedSize, len(s.products))
	return append([]domain.Product{}, s.products[:n]...)
}

// Product looks a catalog entry up by id.
func (s *Store) Product(id int64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Filtered returns a copy of the derived view.
func (s *Store) Filtered() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product{}, s.view...)
}

func (s *Store) Criteria() domain.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// State returns a copy of the whole store.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Restore loads a persisted snapshot and recomputes the view. It does not
// write the snapshot back.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	s.products = append([]domain.Product(nil), snap.Products...)
	s.criteria = domain.DefaultCriteria()
	if snap.Criteria.PageSize > 0 {
		s.criteria = snap.Criteria
	}
	s.view = Filter(s.products, s.criteria)
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers fn to receive the state after every change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) stateLocked() State {
	return State{
		Products: append([]domain.Product{}, s.products...),
		Filtered: append([]domain.Product{}, s.view...),
		Criteria: s.criteria,
		Loading:  s.loading,
		Error:    s.lastError,
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	if len(fns) == 0 {
		return
	}

	st := s.State()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) persist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.mu.RLock()
	snap := Snapshot{
		Products: append([]domain.Product{}, s.products...),
		Criteria: s.criteria,
	}
	s.mu.RUnlock()

	if err := s.persister.Save(ctx, snap); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to persist product store", "error", err)
	}
}
