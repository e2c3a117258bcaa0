package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

// Prominence scoring weights. Each sub-score is capped independently, then
// the sum is capped again at MaxProminenceScore.
const (
	MaxProminenceScore = 1000

	mandateWeightCap      = 400
	pastMandateMultiplier = 0.5
	partyRoleBaseWeight   = 150

	votePoints        = 0.5
	votePointsCap     = 100
	mediaPoints       = 2
	mediaPointsCap    = 100
	factCheckPoints   = 5
	factCheckCap      = 50
	activityScoreCap  = 200
	recentMediaPoints = 5
	recentMediaCap    = 150
	affairPoints      = 10
	affairsScoreCap   = 50

	bonusCurrentMandate  = 100
	bonusActivePartyRole = 60
	bonusRecentMandate   = 40
	recentMandateYears   = 5
)

// mandateBaseWeights ranks office types by public relevance.
var mandateBaseWeights = map[entities.MandateRole]int{
	entities.RolePresident:       400,
	entities.RoleMinister:        350,
	entities.RoleDeputy:          300,
	entities.RoleSenator:         300,
	entities.RoleMEP:             280,
	entities.RolePartyLeader:     250,
	entities.RoleMayor:           200,
	entities.RoleRegionalCouncil: 150,
	entities.RoleLocalCouncil:    100,
}

// ComputeProminence computes the figure's prominence score in [0,1000] from
// mandate history, party roles and pre-aggregated activity counts.
// Deterministic, no I/O; unknown roles simply contribute nothing.
func ComputeProminence(figure *entities.Figure, now time.Time) int {
	total := mandateWeight(figure) +
		activityScore(figure.Activity) +
		mediaScore(figure.Activity) +
		affairsScore(figure.Activity) +
		recencyBonus(figure, now)
	return capScore(total, MaxProminenceScore)
}

// mandateWeight takes the max over mandates and party roles of the role's
// base weight scaled by a current-vs-past multiplier.
func mandateWeight(figure *entities.Figure) int {
	best := 0
	for _, m := range figure.Mandates {
		weight := float64(mandateBaseWeights[m.Role])
		if !m.Current {
			weight *= pastMandateMultiplier
		}
		if int(weight) > best {
			best = int(weight)
		}
	}
	for _, r := range figure.PartyRoles {
		weight := float64(partyRoleBaseWeight)
		if r.End != nil {
			weight *= pastMandateMultiplier
		}
		if int(weight) > best {
			best = int(weight)
		}
	}
	return capScore(best, mandateWeightCap)
}

func activityScore(a entities.ActivityCounts) int {
	votes := capScore(int(float64(a.Votes)*votePoints), votePointsCap)
	media := capScore(a.MediaMentions*mediaPoints, mediaPointsCap)
	factChecks := capScore(a.FactCheckMentions*factCheckPoints, factCheckCap)
	return capScore(votes+media+factChecks, activityScoreCap)
}

// mediaScore counts only mentions inside the rolling recent window; the
// windowing happens upstream, so older mentions never reach this count.
func mediaScore(a entities.ActivityCounts) int {
	return capScore(a.RecentMediaMentions*recentMediaPoints, recentMediaCap)
}

// affairsScore measures visibility, not guilt: linked allegations make a
// figure more looked-at, so the cap is deliberately small.
func affairsScore(a entities.ActivityCounts) int {
	return capScore(a.AffairCount*affairPoints, affairsScoreCap)
}

// recencyBonus is a flat tiered bonus: current mandate beats an active party
// role, which beats a mandate ended within the recent window.
func recencyBonus(figure *entities.Figure, now time.Time) int {
	if figure.HasCurrentMandate() {
		return bonusCurrentMandate
	}
	if figure.HasActivePartyRole() {
		return bonusActivePartyRole
	}
	cutoff := now.AddDate(-recentMandateYears, 0, 0)
	for _, m := range figure.Mandates {
		if m.End != nil && m.End.After(cutoff) {
			return bonusRecentMandate
		}
	}
	return 0
}

func capScore(score, limit int) int {
	if score < 0 {
		return 0
	}
	if score > limit {
		return limit
	}
	return score
}

// ProminenceService recomputes stored prominence scores in batch.
type ProminenceService struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewProminenceService creates a new prominence service.
func NewProminenceService(store ports.Store, logger *slog.Logger) *ProminenceService {
	return &ProminenceService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ScoreChange is one before/after pair reported by a prominence pass.
type ScoreChange struct {
	FigureID string
	Name     string
	From     int
	To       int
}

// ProminenceStats is the outcome of one prominence pass.
type ProminenceStats struct {
	Scanned   int
	Unchanged int
	Updated   int
	Sample    []ScoreChange
	Errors    []error
	DryRun    bool
}

// RunProminencePass recomputes scores for all figures, skipping unchanged
// ones, and bulk-writes the rest unless dry-run.
func (s *ProminenceService) RunProminencePass(ctx context.Context, opts PassOptions) (*ProminenceStats, error) {
	figures, err := s.store.ListFigures(ctx, opts.Limit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", err)
	}

	stats := &ProminenceStats{DryRun: opts.DryRun}
	now := s.now()
	changed := make(map[string]int)

	for _, figure := range figures {
		stats.Scanned++
		score := ComputeProminence(figure, now)
		if score == figure.ProminenceScore {
			stats.Unchanged++
			continue
		}
		changed[figure.ID] = score
		if len(stats.Sample) < sampleLimit {
			stats.Sample = append(stats.Sample, ScoreChange{
				FigureID: figure.ID,
				Name:     figure.FullName,
				From:     figure.ProminenceScore,
				To:       score,
			})
		}
	}

	stats.Updated = len(changed)
	if opts.DryRun || len(changed) == 0 {
		return stats, nil
	}

	if err := s.store.UpdateProminenceScores(ctx, changed); err != nil {
		stats.Errors = append(stats.Errors, fmt.Errorf("writing scores: %w", err))
		stats.Updated = 0
		return stats, nil
	}
	s.logger.Info("prominence pass complete", "scanned", stats.Scanned, "updated", stats.Updated)
	return stats, nil
}
