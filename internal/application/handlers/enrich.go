package handlers

import (
	"context"

	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// EnrichHandler handles single-affair enrichment runs.
type EnrichHandler struct {
	agent *services.EnrichmentAgent
}

// NewEnrichHandler creates a new enrichment handler.
func NewEnrichHandler(agent *services.EnrichmentAgent) *EnrichHandler {
	return &EnrichHandler{agent: agent}
}

// Handle enriches one affair by ID.
func (h *EnrichHandler) Handle(ctx context.Context, affairID string) (*services.EnrichmentResult, error) {
	return h.agent.EnrichAffair(ctx, affairID)
}
