package handlers

import (
	"context"

	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// ProminenceHandler handles prominence scoring passes.
type ProminenceHandler struct {
	service *services.ProminenceService
}

// NewProminenceHandler creates a new prominence handler.
func NewProminenceHandler(service *services.ProminenceService) *ProminenceHandler {
	return &ProminenceHandler{service: service}
}

// Handle recomputes prominence scores for all figures.
func (h *ProminenceHandler) Handle(ctx context.Context, dryRun bool, limit int) (*services.ProminenceStats, error) {
	return h.service.RunProminencePass(ctx, services.PassOptions{DryRun: dryRun, Limit: limit})
}
