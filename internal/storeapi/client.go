// Package storeapi is the client for the external multi-tenant store REST API.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"storefront-service/internal/domain"
)

// Config holds the client settings.
type Config struct {
	BaseURL         string
	Store           string
	Timeout         time.Duration
	MaxAttempts     int // total attempts for transient failures
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerFailures uint32 // consecutive failures that open the breaker
	BreakerTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 2 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storeapi")

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "store-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Transient()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchProducts returns the whole catalog of the configured store.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	data, err := c.do(ctx, http.MethodGet, c.productsPath(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("storeapi: FetchProducts failed: %w", err)
	}
	return decodeProducts(data)
}

// FetchPage returns one 1-based page of products matching crit, filtered and
// sorted by the remote.
func (c *Client) FetchPage(ctx context.Context, crit domain.Criteria, page int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	data, err := c.do(ctx, http.MethodGet, c.productsPath(), pageQuery(crit, page), nil)
	if err != nil {
		return nil, fmt.Errorf("storeapi: FetchPage failed: %w", err)
	}
	return decodeProducts(data)
}

func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	data, err := c.do(ctx, http.MethodPost, c.productsPath(), nil, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("storeapi: CreateProduct failed: %w", err)
	}
	return decodeProduct(data)
}

func (c *Client) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	data, err := c.do(ctx, http.MethodPut, c.productPath(p.ID), nil, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("storeapi: UpdateProduct failed: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	return decodeProduct(data)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodDelete, c.productPath(id), nil, nil); err != nil {
		return fmt.Errorf("storeapi: DeleteProduct failed: %w", err)
	}
	return nil
}

// GetConfig loads the store branding document.
func (c *Client) GetConfig(ctx context.Context) (domain.StoreConfig, error) {
	data, err := c.do(ctx, http.MethodGet, "/user/config", nil, nil)
	if err != nil {
		return domain.StoreConfig{}, fmt.Errorf("storeapi: GetConfig failed: %w", err)
	}
	var cfg domain.StoreConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.StoreConfig{}, fmt.Errorf("storeapi: decode config failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig publishes the store branding document.
func (c *Client) SaveConfig(ctx context.Context, cfg domain.StoreConfig) error {
	if _, err := c.do(ctx, http.MethodPost, "/user/config", nil, cfg); err != nil {
		return fmt.Errorf("storeapi: SaveConfig failed: %w", err)
	}
	return nil
}

func (c *Client) productsPath() string {
	return "/" + url.PathEscape(c.cfg.Store) + "/products"
}

func (c *Client) productPath(id int64) string {
	return c.productsPath() + "/" + strconv.FormatInt(id, 10)
}

func pageQuery(crit domain.Criteria, page int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	limit := crit.PageSize
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	q.Set("limit", strconv.Itoa(limit))
	if crit.Category != "" {
		q.Set("category", crit.Category)
	}
	if crit.MinPrice > 0 {
		q.Set("min_price", strconv.FormatFloat(crit.MinPrice, 'f', -1, 64))
	}
	if crit.MaxPrice >= 0 {
		q.Set("max_price", strconv.FormatFloat(crit.MaxPrice, 'f', -1, 64))
	}
	if s := strings.TrimSpace(crit.Search); s != "" {
		q.Set("q", s)
	}
	switch crit.SortBy {
	case domain.SortPriceAsc:
		q.Set("sort_by", "price")
		q.Set("sort_order", "asc")
	case domain.SortPriceDesc:
		q.Set("sort_by", "price")
		q.Set("sort_order", "desc")
	case domain.SortNameAsc:
		q.Set("sort_by", "title")
		q.Set("sort_order", "asc")
	case domain.SortNameDesc:
		q.Set("sort_by", "title")
		q.Set("sort_order", "desc")
	}
	return q
}

// do runs one logical request through the circuit breaker. Transient failures
// of idempotent methods are retried with capped exponential backoff; a POST is
// sent once since the remote may have committed it before failing.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		data, err := c.breaker.Execute(func() ([]byte, error) {
			return c.attempt(ctx, method, target, payload)
		})
		if err == nil {
			return data, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, backoff.Permanent(fmt.Errorf("%w: %w", ErrUnavailable, err))
		}
		if !retryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialInterval
	exp.MaxInterval = c.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	retries := uint64(c.cfg.MaxAttempts - 1)
	if !idempotent(method) {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx)

	data, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("store API request failed, retrying",
			"method", method, "url", target, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		c.logger.Error("store API request failed", "method", method, "url", target, "attempts", attempt, "error", err)
		return nil, err
	}
	return data, nil
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(data)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return data, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// retryable treats network failures, 5xx and 429 as transient.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return true
}
