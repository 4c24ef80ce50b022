package storeconfig

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/domain"
	"storefront-service/internal/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRemote is a mock implementation of Remote
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) GetConfig(ctx context.Context) (domain.StoreConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.StoreConfig), args.Error(1)
}

func (m *MockRemote) SaveConfig(ctx context.Context, cfg domain.StoreConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func validConfig() domain.StoreConfig {
	cfg := domain.DefaultStoreConfig()
	cfg.StoreName = "Acme"
	cfg.Footer.Contact.Phone = "+1 (555) 010-0199"
	return cfg
}

func TestService_DefaultsUntilLoaded(t *testing.T) {
	svc := New(nil, kvstore.NewMemory(), nil)
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, domain.DefaultStoreConfig(), svc.Get())
	assert.Empty(t, svc.ContactPhone())
}

func TestService_ReplacePersists(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	svc := New(nil, mem, nil)

	_, err := svc.Replace(ctx, validConfig())
	require.NoError(t, err)
	assert.Equal(t, "+1 (555) 010-0199", svc.ContactPhone())

	reloaded := New(nil, mem, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, "Acme", reloaded.Get().StoreName)
}

func TestService_ReplaceRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.StoreConfig)
	}{
		{"missing name", func(c *domain.StoreConfig) { c.StoreName = "" }},
		{"bad color", func(c *domain.StoreConfig) { c.Colors.Primary = "blue" }},
		{"bad logo url", func(c *domain.StoreConfig) { c.Logo = "not a url" }},
		{"unknown icon", func(c *domain.StoreConfig) {
			c.LandingPage.Features = append(c.LandingPage.Features, domain.Feature{Icon: "rocket", Title: "Launch"})
		}},
		{"bad email", func(c *domain.StoreConfig) { c.Footer.Contact.Email = "nope" }},
		{"bad currency", func(c *domain.StoreConfig) { c.Currency = "dollars" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(nil, kvstore.NewMemory(), nil)
			cfg := validConfig()
			tt.mutate(&cfg)

			_, err := svc.Replace(context.Background(), cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, domain.DefaultStoreConfig(), svc.Get())
		})
	}
}

func TestService_SyncAndPublish(t *testing.T) {
	ctx := context.Background()
	remote := new(MockRemote)
	remote.On("GetConfig", mock.Anything).Return(validConfig(), nil).Once()
	svc := New(remote, kvstore.NewMemory(), nil)

	got, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.StoreName)

	remote.On("SaveConfig", mock.Anything, validConfig()).Return(nil).Once()
	require.NoError(t, svc.Publish(ctx))
	remote.AssertExpectations(t)
}

func TestService_SyncFailureKeepsCurrent(t *testing.T) {
	remote := new(MockRemote)
	remote.On("GetConfig", mock.Anything).Return(domain.StoreConfig{}, errors.New("offline"))
	svc := New(remote, kvstore.NewMemory(), nil)

	_, err := svc.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.DefaultStoreConfig(), svc.Get())
}

func TestService_NoRemote(t *testing.T) {
	svc := New(nil, kvstore.NewMemory(), nil)
	_, err := svc.Sync(context.Background())
	assert.Error(t, err)
	assert.Error(t, svc.Publish(context.Background()))
}
