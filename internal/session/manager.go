// Package session owns the per-visitor state containers: cart, product store
// and feed. Their documents live in the kv store so a session survives
// restarts and idle eviction.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/feed"
	"storefront-service/internal/kvstore"
)

type Session struct {
	ID       string
	Cart     *cart.Cart
	Products *catalog.Store
	Feed     *feed.Pager

	lastSeen    time.Time
	unsubscribe func()
}

type Config struct {
	IdleTimeout  time.Duration
	FeedCooldown time.Duration
}

type Manager struct {
	kv     kvstore.Store
	source catalog.Source
	pages  feed.PageSource
	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	opening  singleflight.Group
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(kv kvstore.Store, source catalog.Source, pages feed.PageSource, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &Manager{
		kv:       kv,
		source:   source,
		pages:    pages,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session for id, creating it from persisted state on
// first use. Concurrent first uses of one id share a single open, and the
// manager lock is not held while it reads the kv store.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.lookup(id); ok {
		return s, nil
	}

	v, err, _ := m.opening.Do(id, func() (any, error) {
		return m.open(context.WithoutCancel(ctx), id)
	})
	if err != nil {
		return nil, fmt.Errorf("session: Get failed: %w", err)
	}
	opened := v.(*Session)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		if s != opened {
			opened.unsubscribe()
		}
		s.lastSeen = m.now()
		return s, nil
	}
	opened.lastSeen = m.now()
	m.sessions[id] = opened
	return opened, nil
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.now()
	}
	return s, ok
}

func (m *Manager) open(ctx context.Context, id string) (*Session, error) {
	logger := m.logger.With("session_id", id)

	cartDoc := kvstore.NewDocument[[]domain.CartItem](m.kv, kvstore.CartKey(id))
	c := cart.New(cartDoc, logger)
	raw, err := cartDoc.LoadRaw(ctx)
	switch {
	case err == nil:
		c.Restore(raw)
	case !errors.Is(err, kvstore.ErrNotFound):
		return nil, err
	}

	productsDoc := kvstore.NewDocument[catalog.Snapshot](m.kv, kvstore.ProductsKey(id))
	products := catalog.NewStore(m.source, productsDoc, logger)
	snap, ok, err := productsDoc.Load(ctx)
	if err != nil {
		logger.Warn("ignoring unreadable product store document", "error", err)
	} else if ok {
		products.Restore(snap)
	}

	pager := feed.New(m.pages, m.cfg.FeedCooldown, nil, logger)
	pager.SetCriteria(products.Criteria())
	unsubscribe := products.Subscribe(func(st catalog.State) {
		if pager.SetCriteria(st.Criteria) {
			logger.Debug("feed reset after criteria change")
		}
	})

	return &Session{
		ID:          id,
		Cart:        c,
		Products:    products,
		Feed:        pager,
		unsubscribe: unsubscribe,
	}, nil
}

// Sweep evicts sessions idle since before now-IdleTimeout and returns how
// many were dropped. Their documents stay in the kv store.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) < m.cfg.IdleTimeout {
			continue
		}
		s.unsubscribe()
		delete(m.sessions, id)
		dropped++
	}
	if dropped > 0 {
		m.logger.Info("evicted idle sessions", "count", dropped, "remaining", len(m.sessions))
	}
	return dropped
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			m.Sweep(t)
		}
	}
}
