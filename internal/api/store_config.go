package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/domain"
	"storefront-service/internal/storeconfig"
)

func (h *HTTPHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.config.Get())
}

func (h *HTTPHandler) ReplaceConfig(w http.ResponseWriter, r *http.Request) {
	var input domain.StoreConfig
	if !h.decodeJSON(w, r, &input) {
		return
	}
	cfg, err := h.config.Replace(r.Context(), input)
	if err != nil {
		if errors.Is(err, storeconfig.ErrInvalidConfig) {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("config replace failed", "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}
	h.respondWithJSON(w, http.StatusOK, cfg)
}

func (h *HTTPHandler) SyncConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Sync(r.Context())
	if err != nil {
		h.logger.Error("config sync failed", "error", err)
		if errors.Is(err, storeconfig.ErrInvalidConfig) {
			h.respondWithError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.respondWithError(w, upstreamStatus(err), "Failed to sync configuration")
		return
	}
	h.respondWithJSON(w, http.StatusOK, cfg)
}

func (h *HTTPHandler) PublishConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.config.Publish(r.Context()); err != nil {
		h.logger.Error("config publish failed", "error", err)
		h.respondWithError(w, upstreamStatus(err), "Failed to publish configuration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
