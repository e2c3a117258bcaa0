package handlers

import (
	"context"

	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// DedupHandler handles duplicate detection and reconciliation passes.
type DedupHandler struct {
	detector *services.DuplicateDetector
	merger   *services.ReconciliationMerger
}

// NewDedupHandler creates a new dedup handler.
func NewDedupHandler(detector *services.DuplicateDetector, merger *services.ReconciliationMerger) *DedupHandler {
	return &DedupHandler{
		detector: detector,
		merger:   merger,
	}
}

// DedupReport pairs the detected candidates with the resolution outcome.
type DedupReport struct {
	Pairs []services.DuplicatePair
	Stats *services.DedupStats
}

// Handle detects duplicate affairs and resolves them under the tier policy.
func (h *DedupHandler) Handle(ctx context.Context, dryRun bool, limit int) (*DedupReport, error) {
	pairs, err := h.detector.FindCandidates(ctx, limit)
	if err != nil {
		return nil, err
	}

	stats := h.merger.ResolvePairs(ctx, pairs, dryRun)
	return &DedupReport{Pairs: pairs, Stats: stats}, nil
}
