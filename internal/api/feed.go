package api

import (
	"context"
	"errors"
	"net/http"

	"storefront-service/internal/domain"
	"storefront-service/internal/feed"
)

// FeedPageResponse is the answer to a page request.
type FeedPageResponse struct {
	Items []domain.Product `json:"items"`
	State feed.Snapshot    `json:"state"`
}

func (h *HTTPHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondWithJSON(w, http.StatusOK, s.Feed.State())
}

func (h *HTTPHandler) NextFeedPage(w http.ResponseWriter, r *http.Request) {
	h.feedPage(w, r, func(p *feed.Pager, ctx context.Context) ([]domain.Product, error) {
		return p.Next(ctx)
	})
}

func (h *HTTPHandler) RetryFeedPage(w http.ResponseWriter, r *http.Request) {
	h.feedPage(w, r, func(p *feed.Pager, ctx context.Context) ([]domain.Product, error) {
		return p.Retry(ctx)
	})
}

func (h *HTTPHandler) feedPage(w http.ResponseWriter, r *http.Request, fetch func(*feed.Pager, context.Context) ([]domain.Product, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	items, err := fetch(s.Feed, r.Context())
	switch {
	case err == nil, errors.Is(err, feed.ErrExhausted):
		if items == nil {
			items = []domain.Product{}
		}
		h.respondWithJSON(w, http.StatusOK, FeedPageResponse{Items: items, State: s.Feed.State()})
	case errors.Is(err, feed.ErrInFlight), errors.Is(err, feed.ErrStale):
		h.respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, feed.ErrCoolingDown):
		w.Header().Set("Retry-After", "1")
		h.respondWithError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Warn("feed page fetch failed", "session_id", s.ID, "error", err)
		h.respondWithError(w, upstreamStatus(err), "Failed to load products, retry later")
	}
}
