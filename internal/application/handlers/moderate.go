package handlers

import (
	"context"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// ModerateHandler handles moderation pipeline runs and review application.
type ModerateHandler struct {
	pipeline *services.ModerationPipeline
}

// NewModerateHandler creates a new moderation handler.
func NewModerateHandler(pipeline *services.ModerationPipeline) *ModerateHandler {
	return &ModerateHandler{pipeline: pipeline}
}

// Handle runs one full moderation pass: dedup, classification, enrichment.
func (h *ModerateHandler) Handle(ctx context.Context, dryRun bool, limit int) (*services.ModerationStats, error) {
	return h.pipeline.RunModerationPass(ctx, services.PassOptions{DryRun: dryRun, Limit: limit})
}

// HandleApply applies one pending review, moving its affair to the
// recommended publication status.
func (h *ModerateHandler) HandleApply(ctx context.Context, reviewID string) (entities.AffairStatus, error) {
	return h.pipeline.ApplyReview(ctx, reviewID)
}
