package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

// ConfidenceTier classifies how certain a duplicate pair is.
type ConfidenceTier string

const (
	// TierCertain pairs share an identical source-URL set.
	TierCertain ConfidenceTier = "certain"
	// TierHigh pairs have the same normalized title and close facts dates.
	TierHigh ConfidenceTier = "high"
	// TierPossible pairs only show a weaker signal and are never auto-merged.
	TierPossible ConfidenceTier = "possible"
)

const (
	highTierDateWindow      = 30 * 24 * time.Hour
	possibleJaccardFloor    = 0.5
	semanticSimilarityBar   = 0.85
	semanticSearchNeighbors = 3
)

// DuplicatePair is a candidate duplicate with its similarity evidence.
// Older always holds the earlier-created affair.
type DuplicatePair struct {
	Older  *entities.Affair
	Newer  *entities.Affair
	Score  float64
	Tier   ConfidenceTier
	Reason string
}

// DuplicateDetector finds candidate duplicate affair pairs. The embedder and
// vector index are optional; when absent, detection uses only the
// deterministic signals.
type DuplicateDetector struct {
	store    ports.Store
	embedder ports.Embedder
	vectors  ports.VectorIndex
	logger   *slog.Logger
}

// NewDuplicateDetector creates a detector. Pass nil embedder/vectors to
// disable the semantic candidate pass.
func NewDuplicateDetector(store ports.Store, embedder ports.Embedder, vectors ports.VectorIndex, logger *slog.Logger) *DuplicateDetector {
	return &DuplicateDetector{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		logger:   logger,
	}
}

// FindCandidates scans active affairs and returns duplicate pairs. Affairs
// are only compared within the same figure: cross-figure duplicates are an
// attribution problem, not a dedup problem.
func (d *DuplicateDetector) FindCandidates(ctx context.Context, limit int) ([]DuplicatePair, error) {
	affairs, err := d.store.ListActiveAffairs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing affairs: %w", err)
	}

	byFigure := make(map[string][]*entities.Affair)
	for _, a := range affairs {
		byFigure[a.FigureID] = append(byFigure[a.FigureID], a)
	}

	seen := make(map[string]bool)
	var pairs []DuplicatePair
	for _, group := range byFigure {
		sort.Slice(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				pair := classifyPair(group[i], group[j])
				if pair == nil {
					continue
				}
				seen[pairKey(group[i].ID, group[j].ID)] = true
				pairs = append(pairs, *pair)
			}
		}
	}

	if d.embedder != nil && d.vectors != nil {
		semantic, err := d.semanticCandidates(ctx, affairs, seen)
		if err != nil {
			// Semantic hints are best effort; deterministic pairs stand.
			d.logger.Warn("semantic duplicate pass failed", "err", err)
		} else {
			pairs = append(pairs, semantic...)
		}
	}

	return pairs, nil
}

// classifyPair returns the strongest tier the pair qualifies for, or nil.
func classifyPair(older, newer *entities.Affair) *DuplicatePair {
	if sameURLSet(older, newer) {
		return &DuplicatePair{
			Older: older, Newer: newer,
			Score: 1.0, Tier: TierCertain,
			Reason: "identical source URL sets",
		}
	}

	titleA := Normalize(older.Title)
	titleB := Normalize(newer.Title)
	if titleA != "" && titleA == titleB && factsDatesClose(older, newer) {
		return &DuplicatePair{
			Older: older, Newer: newer,
			Score: 0.9, Tier: TierHigh,
			Reason: "identical normalized titles with close facts dates",
		}
	}

	if j := tokenJaccard(titleA, titleB); j >= possibleJaccardFloor {
		return &DuplicatePair{
			Older: older, Newer: newer,
			Score: j, Tier: TierPossible,
			Reason: fmt.Sprintf("title token overlap %.2f", j),
		}
	}

	return nil
}

func sameURLSet(a, b *entities.Affair) bool {
	setA, setB := a.SourceURLSet(), b.SourceURLSet()
	if len(setA) == 0 || len(setA) != len(setB) {
		return false
	}
	for url := range setA {
		if _, ok := setB[url]; !ok {
			return false
		}
	}
	return true
}

// factsDatesClose treats missing dates as proximate: the title signal alone
// carries the HIGH tier when dating is unknown.
func factsDatesClose(a, b *entities.Affair) bool {
	if a.FactsDate == nil || b.FactsDate == nil {
		return true
	}
	delta := a.FactsDate.Sub(*b.FactsDate)
	if delta < 0 {
		delta = -delta
	}
	return delta <= highTierDateWindow
}

func tokenJaccard(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := tokenSet(a)
	setB := tokenSet(b)
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// semanticCandidates embeds each affair's title and description, upserts the
// vectors and surfaces same-figure neighbors above the similarity bar as
// POSSIBLE pairs not already found deterministically.
func (d *DuplicateDetector) semanticCandidates(ctx context.Context, affairs []*entities.Affair, seen map[string]bool) ([]DuplicatePair, error) {
	if len(affairs) < 2 {
		return nil, nil
	}

	byID := make(map[string]*entities.Affair, len(affairs))
	texts := make([]string, len(affairs))
	for i, a := range affairs {
		byID[a.ID] = a
		texts[i] = strings.TrimSpace(a.Title + "\n" + a.Description)
	}

	vectors, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding affairs: %w", err)
	}

	for i, a := range affairs {
		if err := d.vectors.SaveAffairVector(ctx, a.ID, a.FigureID, vectors[i]); err != nil {
			return nil, fmt.Errorf("saving affair vector: %w", err)
		}
	}

	var pairs []DuplicatePair
	for i, a := range affairs {
		similar, err := d.vectors.SearchSimilar(ctx, vectors[i], a.FigureID, a.ID, semanticSearchNeighbors)
		if err != nil {
			return nil, fmt.Errorf("searching similar affairs: %w", err)
		}
		for _, hit := range similar {
			if float64(hit.Score) < semanticSimilarityBar {
				continue
			}
			other, ok := byID[hit.AffairID]
			if !ok {
				continue
			}
			key := pairKey(a.ID, other.ID)
			if seen[key] {
				continue
			}
			seen[key] = true
			older, newer := a, other
			if newer.CreatedAt.Before(older.CreatedAt) {
				older, newer = newer, older
			}
			pairs = append(pairs, DuplicatePair{
				Older: older, Newer: newer,
				Score: float64(hit.Score), Tier: TierPossible,
				Reason: fmt.Sprintf("embedding similarity %.2f", hit.Score),
			})
		}
	}
	return pairs, nil
}

// DedupStats is the outcome of one duplicate detection pass.
type DedupStats struct {
	PairsFound     int
	Merged         int
	Flagged        int
	AlreadyFlagged int
	Errors         []error
	DryRun         bool
}

// ReconciliationMerger resolves detected duplicate pairs under the
// confidence-tier policy: CERTAIN/HIGH auto-merge, POSSIBLE only flags.
type ReconciliationMerger struct {
	store   ports.Store
	vectors ports.VectorIndex
	logger  *slog.Logger
	now     func() time.Time
}

// NewReconciliationMerger creates a merger. The vector index is optional;
// when present, merged-away affairs are removed from it.
func NewReconciliationMerger(store ports.Store, vectors ports.VectorIndex, logger *slog.Logger) *ReconciliationMerger {
	return &ReconciliationMerger{
		store:   store,
		vectors: vectors,
		logger:  logger,
		now:     time.Now,
	}
}

// ResolvePairs applies the merge/flag policy to each pair. A failure on one
// pair is recorded and does not abort the rest.
func (m *ReconciliationMerger) ResolvePairs(ctx context.Context, pairs []DuplicatePair, dryRun bool) *DedupStats {
	stats := &DedupStats{PairsFound: len(pairs), DryRun: dryRun}

	for _, pair := range pairs {
		switch pair.Tier {
		case TierCertain, TierHigh:
			winner, loser := chooseWinner(pair.Older, pair.Newer)
			if dryRun {
				stats.Merged++
				continue
			}
			if err := m.store.MergeAffairs(ctx, winner.ID, loser.ID); err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("merging %s into %s: %w", loser.ID, winner.ID, err))
				continue
			}
			stats.Merged++
			m.logger.Info("affairs merged",
				"winner", winner.ID, "loser", loser.ID,
				"tier", string(pair.Tier), "reason", pair.Reason)
			// Index cleanup is best effort: the detector skips hits whose
			// affair no longer exists, so a stale point cannot resurface.
			if m.vectors != nil {
				if err := m.vectors.DeleteAffairVector(ctx, loser.ID); err != nil {
					m.logger.Warn("deleting merged affair vector",
						"affair", loser.ID, "err", err)
				}
			}

		case TierPossible:
			exists, err := m.store.PendingDuplicateReviewExists(ctx, pair.Newer.ID, pair.Older.ID)
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("checking pending flag for %s/%s: %w", pair.Newer.ID, pair.Older.ID, err))
				continue
			}
			if exists {
				stats.AlreadyFlagged++
				continue
			}
			if dryRun {
				stats.Flagged++
				continue
			}
			review := &entities.ModerationReview{
				ID:             uuid.New().String(),
				AffairID:       pair.Newer.ID,
				Recommendation: entities.RecommendNeedsReview,
				Confidence:     int(pair.Score * 100),
				Reasoning:      "possible duplicate: " + pair.Reason,
				DuplicateOfID:  pair.Older.ID,
				CreatedAt:      m.now(),
			}
			if err := m.store.SaveReview(ctx, review); err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("flagging pair %s/%s: %w", pair.Newer.ID, pair.Older.ID, err))
				continue
			}
			stats.Flagged++
		}
	}

	return stats
}

// chooseWinner keeps the record with more sources; ties go to the
// earlier-created record.
func chooseWinner(a, b *entities.Affair) (winner, loser *entities.Affair) {
	if len(b.Sources) > len(a.Sources) {
		return b, a
	}
	if len(a.Sources) > len(b.Sources) {
		return a, b
	}
	if b.CreatedAt.Before(a.CreatedAt) {
		return b, a
	}
	return a, b
}
