// Package handlers provides application-level handlers wiring CLI commands
// to domain services.
package handlers

import (
	"context"

	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// StatusHandler handles publication status passes.
type StatusHandler struct {
	engine *services.StatusEngine
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(engine *services.StatusEngine) *StatusHandler {
	return &StatusHandler{engine: engine}
}

// Handle runs one publication status pass over all figures.
func (h *StatusHandler) Handle(ctx context.Context, dryRun bool, limit int) (*services.StatusStats, error) {
	return h.engine.RunStatusPass(ctx, services.PassOptions{DryRun: dryRun, Limit: limit})
}
