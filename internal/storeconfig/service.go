// Package storeconfig keeps the tenant's branding document: loaded from the
// local kv store, edited through the dashboard endpoints and synchronised
// with the remote config endpoint.
package storeconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"storefront-service/internal/domain"
	"storefront-service/internal/kvstore"
)

var ErrInvalidConfig = errors.New("storeconfig: invalid configuration")

// Remote is the store API's config endpoint.
type Remote interface {
	GetConfig(ctx context.Context) (domain.StoreConfig, error)
	SaveConfig(ctx context.Context, cfg domain.StoreConfig) error
}

type Service struct {
	remote   Remote
	doc      *kvstore.Document[domain.StoreConfig]
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.RWMutex
	current domain.StoreConfig
}

// New creates a service serving DefaultStoreConfig until Load or an edit
// replaces it. remote may be nil when no store API is configured.
func New(remote Remote, store kvstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote:   remote,
		doc:      kvstore.NewDocument[domain.StoreConfig](store, kvstore.StoreConfigKey),
		validate: validator.New(),
		logger:   logger,
		current:  domain.DefaultStoreConfig(),
	}
}

// Load reads the persisted document, keeping the default when none exists.
func (s *Service) Load(ctx context.Context) error {
	cfg, ok, err := s.doc.Load(ctx)
	if err != nil {
		return fmt.Errorf("storeconfig: Load failed: %w", err)
	}
	if !ok {
		s.logger.Info("no stored configuration, serving defaults")
		return nil
	}
	if err := s.check(cfg); err != nil {
		s.logger.Warn("stored configuration is invalid, serving defaults", "error", err)
		return nil
	}
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return nil
}

func (s *Service) Get() domain.StoreConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ContactPhone is the destination number for checkout messages.
func (s *Service) ContactPhone() string {
	return s.Get().Footer.Contact.Phone
}

// Replace validates and stores cfg.
func (s *Service) Replace(ctx context.Context, cfg domain.StoreConfig) (domain.StoreConfig, error) {
	if err := s.check(cfg); err != nil {
		return domain.StoreConfig{}, err
	}
	if err := s.doc.Save(ctx, cfg); err != nil {
		return domain.StoreConfig{}, fmt.Errorf("storeconfig: Replace failed: %w", err)
	}
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return cfg, nil
}

// Sync pulls the remote document and makes it current.
func (s *Service) Sync(ctx context.Context) (domain.StoreConfig, error) {
	if s.remote == nil {
		return domain.StoreConfig{}, errors.New("storeconfig: no remote configured")
	}
	cfg, err := s.remote.GetConfig(ctx)
	if err != nil {
		return domain.StoreConfig{}, fmt.Errorf("storeconfig: Sync failed: %w", err)
	}
	return s.Replace(ctx, cfg)
}

// Publish pushes the current document to the remote.
func (s *Service) Publish(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("storeconfig: no remote configured")
	}
	if err := s.remote.SaveConfig(ctx, s.Get()); err != nil {
		return fmt.Errorf("storeconfig: Publish failed: %w", err)
	}
	return nil
}

func (s *Service) check(cfg domain.StoreConfig) error {
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
