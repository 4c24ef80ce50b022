// Package feed implements the infinite-scroll pager: page N+1 is requested
// with the current criteria and appended, with an in-flight guard and a short
// cooldown between requests.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"storefront-service/internal/domain"
)

// DefaultCooldown is the pause after a completed page before the next one
// may start.
const DefaultCooldown = 300 * time.Millisecond

var (
	ErrInFlight    = errors.New("feed: page request already in flight")
	ErrCoolingDown = errors.New("feed: cooling down")
	ErrExhausted   = errors.New("feed: no more pages")
	ErrStale       = errors.New("feed: criteria changed while fetching")
)

type Status int

const (
	Idle Status = iota
	Fetching
	Cooldown
)

func (s Status) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Cooldown:
		return "cooldown"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "fetching":
		*s = Fetching
	case "cooldown":
		*s = Cooldown
	default:
		return fmt.Errorf("feed: unknown status %q", b)
	}
	return nil
}

// PageSource fetches one 1-based page of products matching c.
type PageSource interface {
	FetchPage(ctx context.Context, c domain.Criteria, page int) ([]domain.Product, error)
}

// Snapshot is a copy of the pager handed to callers.
type Snapshot struct {
	Status   Status           `json:"status"`
	Criteria domain.Criteria  `json:"criteria"`
	Page     int              `json:"page"`
	Items    []domain.Product `json:"items"`
	HasMore  bool             `json:"has_more"`
	Error    string           `json:"error,omitempty"`
}

type Pager struct {
	source   PageSource
	clock    backoff.Clock
	cooldown time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	status        Status
	criteria      domain.Criteria
	generation    uint64
	page          int
	items         []domain.Product
	hasMore       bool
	cooldownUntil time.Time
	lastErr       error
}

// New creates an idle pager over the default criteria. A nil clock means the
// wall clock.
func New(source PageSource, cooldown time.Duration, clock backoff.Clock, logger *slog.Logger) *Pager {
	if clock == nil {
		clock = backoff.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cooldown < 0 {
		cooldown = 0
	}
	return &Pager{
		source:   source,
		clock:    clock,
		cooldown: cooldown,
		logger:   logger,
		criteria: domain.DefaultCriteria(),
		hasMore:  true,
	}
}

// Next requests the following page. While a request is outstanding or the
// cooldown has not elapsed the call is suppressed with ErrInFlight or
// ErrCoolingDown; after the last page it returns ErrExhausted. A response
// that arrives after the criteria changed is dropped with ErrStale.
func (p *Pager) Next(ctx context.Context) ([]domain.Product, error) {
	p.mu.Lock()
	p.advanceLocked()
	switch {
	case p.status == Fetching:
		p.mu.Unlock()
		return nil, ErrInFlight
	case p.status == Cooldown:
		p.mu.Unlock()
		return nil, ErrCoolingDown
	case !p.hasMore:
		p.mu.Unlock()
		return nil, ErrExhausted
	}
	gen := p.generation
	page := p.page + 1
	criteria := p.criteria
	p.status = Fetching
	p.mu.Unlock()

	items, err := p.source.FetchPage(ctx, criteria, page)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		p.logger.Debug("discarding stale page", "page", page)
		return nil, ErrStale
	}
	if err != nil {
		p.status = Idle
		p.lastErr = err
		return nil, fmt.Errorf("feed: Next failed: %w", err)
	}

	p.items = append(p.items, items...)
	p.page = page
	p.hasMore = len(items) >= criteria.PageSize
	p.lastErr = nil
	p.status = Cooldown
	p.cooldownUntil = p.clock.Now().Add(p.cooldown)
	return append([]domain.Product{}, items...), nil
}

// Retry clears a recorded failure and requests the next page again.
func (p *Pager) Retry(ctx context.Context) ([]domain.Product, error) {
	p.mu.Lock()
	p.lastErr = nil
	p.mu.Unlock()
	return p.Next(ctx)
}

// SetCriteria restarts the feed from page one when c differs from the current
// criteria. It reports whether a reset happened.
func (p *Pager) SetCriteria(c domain.Criteria) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c == p.criteria {
		return false
	}
	p.criteria = c
	p.generation++
	p.page = 0
	p.items = nil
	p.hasMore = true
	p.lastErr = nil
	p.status = Idle
	p.cooldownUntil = time.Time{}
	return true
}

func (p *Pager) State() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked()

	snap := Snapshot{
		Status:   p.status,
		Criteria: p.criteria,
		Page:     p.page,
		Items:    append([]domain.Product{}, p.items...),
		HasMore:  p.hasMore,
	}
	if p.lastErr != nil {
		snap.Error = p.lastErr.Error()
	}
	return snap
}

// advanceLocked applies the timer transition Cooldown -> Idle.
func (p *Pager) advanceLocked() {
	if p.status == Cooldown && !p.clock.Now().Before(p.cooldownUntil) {
		p.status = Idle
	}
}
