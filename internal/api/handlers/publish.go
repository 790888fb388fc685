package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// Publisher publishes today's list (publish.Flow)
type Publisher interface {
	PublishToday(ctx context.Context, source string, force bool) (*contracts.PublishResult, error)
}

// PublishHandler handles the publish endpoint
type PublishHandler struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(publisher Publisher, log *logger.Logger) *PublishHandler {
	return &PublishHandler{
		publisher: publisher,
		logger:    log,
	}
}

// Publish publishes today's list for a source
// POST /api/publish?source=preopen&force=1
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	force := boolParam(r, "force")

	res, err := h.publisher.PublishToday(r.Context(), source, force)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"source": source,
			"force":  force,
			"error":  err.Error(),
		}).Warn("Publish request failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": res,
	})
}
