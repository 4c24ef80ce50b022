package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

// MockPageSource is a mock implementation of PageSource
type MockPageSource struct {
	mock.Mock
}

func (m *MockPageSource) FetchPage(ctx context.Context, c domain.Criteria, page int) ([]domain.Product, error) {
	args := m.Called(ctx, c, page)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func makePage(start, n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{ID: int64(start + i), Title: "p", Price: 1}
	}
	return out
}

func smallCriteria() domain.Criteria {
	c := domain.DefaultCriteria()
	c.PageSize = 2
	return c
}

func TestPager_AppendsPagesUntilShortPage(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	src := new(MockPageSource)
	c := smallCriteria()
	src.On("FetchPage", mock.Anything, c, 1).Return(makePage(1, 2), nil).Once()
	src.On("FetchPage", mock.Anything, c, 2).Return(makePage(3, 1), nil).Once()

	p := New(src, time.Second, clock, nil)
	require.True(t, p.SetCriteria(c))

	got, err := p.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, Cooldown, p.State().Status)
	assert.True(t, p.State().HasMore)

	clock.Advance(time.Second)
	got, err = p.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	st := p.State()
	assert.Equal(t, 2, st.Page)
	assert.Len(t, st.Items, 3)
	assert.False(t, st.HasMore)

	clock.Advance(time.Second)
	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, ErrExhausted)
	src.AssertExpectations(t)
}

func TestPager_CooldownSuppressesRequests(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	src := new(MockPageSource)
	src.On("FetchPage", mock.Anything, mock.Anything, mock.Anything).Return(makePage(1, 12), nil)

	p := New(src, 300*time.Millisecond, clock, nil)
	_, err := p.Next(ctx)
	require.NoError(t, err)

	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, ErrCoolingDown)

	clock.Advance(299 * time.Millisecond)
	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, ErrCoolingDown)

	clock.Advance(time.Millisecond)
	assert.Equal(t, Idle, p.State().Status)
	_, err = p.Next(ctx)
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "FetchPage", 2)
}

func TestPager_InFlightGuard(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	src := new(MockPageSource)
	src.On("FetchPage", mock.Anything, mock.Anything, 1).
		Run(func(mock.Arguments) { <-release }).
		Return(makePage(1, 12), nil).Once()

	p := New(src, 0, newClock(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Next(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return p.State().Status == Fetching }, time.Second, time.Millisecond)

	for i := 0; i < 3; i++ {
		_, err := p.Next(ctx)
		assert.ErrorIs(t, err, ErrInFlight)
	}

	close(release)
	require.NoError(t, <-done)
	src.AssertNumberOfCalls(t, "FetchPage", 1)
	assert.Len(t, p.State().Items, 12)
}

func TestPager_StaleResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	src := new(MockPageSource)
	src.On("FetchPage", mock.Anything, domain.DefaultCriteria(), 1).
		Run(func(mock.Arguments) { <-release }).
		Return(makePage(100, 12), nil).Once()

	p := New(src, 0, newClock(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Next(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return p.State().Status == Fetching }, time.Second, time.Millisecond)

	c := domain.DefaultCriteria()
	c.Category = "shoes"
	require.True(t, p.SetCriteria(c))

	close(release)
	assert.ErrorIs(t, <-done, ErrStale)

	st := p.State()
	assert.Empty(t, st.Items, "stale page must not leak into the new view")
	assert.Equal(t, 0, st.Page)
	assert.Equal(t, "shoes", st.Criteria.Category)
}

func TestPager_SetCriteriaSameValueKeepsItems(t *testing.T) {
	ctx := context.Background()
	src := new(MockPageSource)
	src.On("FetchPage", mock.Anything, mock.Anything, 1).Return(makePage(1, 12), nil).Once()

	p := New(src, 0, newClock(), nil)
	_, err := p.Next(ctx)
	require.NoError(t, err)

	assert.False(t, p.SetCriteria(domain.DefaultCriteria()))
	assert.Len(t, p.State().Items, 12)
}

func TestPager_FailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	src := new(MockPageSource)
	src.On("FetchPage", mock.Anything, mock.Anything, 1).Return(nil, errors.New("gateway timeout")).Once()
	src.On("FetchPage", mock.Anything, mock.Anything, 1).Return(makePage(1, 3), nil).Once()

	p := New(src, time.Minute, newClock(), nil)

	_, err := p.Next(ctx)
	require.Error(t, err)
	st := p.State()
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, "gateway timeout", st.Error)
	assert.Equal(t, 0, st.Page)

	got, err := p.Retry(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Empty(t, p.State().Error)
	assert.False(t, p.State().HasMore)
	src.AssertExpectations(t)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "cooldown", Cooldown.String())
}
