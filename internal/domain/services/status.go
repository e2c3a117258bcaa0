package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

// Publication status rule constants. Tuned for the French political corpus
// the tracker covers.
const (
	// Figures dead before this year are historical, never shown.
	historicalDeathYearCutoff = 1945
	// Figures born before this year with no current mandate and a low score
	// are historical too.
	historicalBirthYearCutoff = 1920
	publishScoreThreshold     = 100
	archiveScoreThreshold     = 40
	archiveAfterDeathYears    = 10
	hoursPerYear              = 365.25 * 24
)

// StatusEngine derives figure publication statuses from the current
// mandate/score snapshot.
type StatusEngine struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
	// requireMinimumData gates publication on having a photo or bio.
	requireMinimumData bool
}

// NewStatusEngine creates a new publication status engine.
func NewStatusEngine(store ports.Store, logger *slog.Logger) *StatusEngine {
	return &StatusEngine{
		store:              store,
		logger:             logger,
		now:                time.Now,
		requireMinimumData: true,
	}
}

// DeterminePublicationStatus evaluates the priority-ordered status rules for
// one figure. The second return value is false when the status is frozen by
// a manual override and automation must not touch it. Rule order encodes
// precedence, not independent conditions.
func (e *StatusEngine) DeterminePublicationStatus(figure *entities.Figure) (entities.FigureStatus, bool) {
	if figure.StatusOverride {
		return figure.PublicationStatus, false
	}

	now := e.now()

	if figure.DeathDate != nil && figure.DeathDate.Year() < historicalDeathYearCutoff {
		return entities.FigureExcluded, true
	}

	if figure.BirthDate != nil && figure.BirthDate.Year() < historicalBirthYearCutoff &&
		!figure.HasCurrentMandate() && figure.ProminenceScore < publishScoreThreshold {
		return entities.FigureExcluded, true
	}

	if figure.HasCurrentMandate() {
		return entities.FigurePublished, true
	}

	if figure.ProminenceScore >= publishScoreThreshold &&
		(figure.HasPhoto || figure.HasBio || !e.requireMinimumData) {
		return entities.FigurePublished, true
	}

	if figure.DeathDate != nil {
		yearsDead := now.Sub(*figure.DeathDate).Hours() / hoursPerYear
		if yearsDead > archiveAfterDeathYears {
			return entities.FigureArchived, true
		}
	}

	if figure.ProminenceScore < archiveScoreThreshold && !figure.HasCurrentMandate() {
		return entities.FigureArchived, true
	}

	return entities.FigureDraft, true
}

// StatusChange is one before/after pair reported by a status pass.
type StatusChange struct {
	FigureID string
	Name     string
	From     entities.FigureStatus
	To       entities.FigureStatus
}

// StatusStats is the outcome of one status pass.
type StatusStats struct {
	Scanned    int
	Overridden int
	Unchanged  int
	Changed    map[entities.FigureStatus]int
	Sample     []StatusChange
	Errors     []error
	DryRun     bool
}

// RunStatusPass evaluates all figures, groups changed ones by target status
// and performs one bulk write per group. Recomputing an already-correct
// status counts as unchanged and writes nothing, so re-runs are idempotent.
func (e *StatusEngine) RunStatusPass(ctx context.Context, opts PassOptions) (*StatusStats, error) {
	figures, err := e.store.ListFigures(ctx, opts.Limit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", err)
	}

	stats := &StatusStats{
		Changed: make(map[entities.FigureStatus]int),
		DryRun:  opts.DryRun,
	}
	groups := make(map[entities.FigureStatus][]string)

	for _, figure := range figures {
		stats.Scanned++

		target, automated := e.DeterminePublicationStatus(figure)
		if !automated {
			stats.Overridden++
			continue
		}
		if target == figure.PublicationStatus {
			stats.Unchanged++
			continue
		}

		groups[target] = append(groups[target], figure.ID)
		stats.Changed[target]++
		if len(stats.Sample) < sampleLimit {
			stats.Sample = append(stats.Sample, StatusChange{
				FigureID: figure.ID,
				Name:     figure.FullName,
				From:     figure.PublicationStatus,
				To:       target,
			})
		}
	}

	if opts.DryRun {
		return stats, nil
	}

	for target, ids := range groups {
		if err := e.store.UpdateFigureStatuses(ctx, ids, target); err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("updating %d figures to %s: %w", len(ids), target, err))
			stats.Changed[target] = 0
			continue
		}
		e.logger.Info("figure statuses updated", "target", string(target), "count", len(ids))
	}

	return stats, nil
}
