package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

// DefaultCallTimeout bounds one external classifier call.
const DefaultCallTimeout = 60 * time.Second

// ModerationPipeline orchestrates the three moderation phases in strict
// order: duplicate resolution to completion, then AI classification of
// unreviewed drafts, then enrichment of thin rejected records. Processing is
// single-worker on purpose: the classifier backend is rate limited.
type ModerationPipeline struct {
	store       ports.Store
	classifier  ports.Classifier
	limiter     *RateLimiter
	detector    *DuplicateDetector
	merger      *ReconciliationMerger
	enricher    *EnrichmentAgent
	logger      *slog.Logger
	now         func() time.Time
	callTimeout time.Duration
}

// NewModerationPipeline creates a pipeline.
func NewModerationPipeline(
	store ports.Store,
	classifier ports.Classifier,
	limiter *RateLimiter,
	detector *DuplicateDetector,
	merger *ReconciliationMerger,
	enricher *EnrichmentAgent,
	logger *slog.Logger,
) *ModerationPipeline {
	return &ModerationPipeline{
		store:       store,
		classifier:  classifier,
		limiter:     limiter,
		detector:    detector,
		merger:      merger,
		enricher:    enricher,
		logger:      logger,
		now:         time.Now,
		callTimeout: DefaultCallTimeout,
	}
}

// ModerationStats is the outcome of one moderation pass.
type ModerationStats struct {
	Dedup              *DedupStats
	Classified         int
	ClassifyFailed     int
	EnrichmentEligible int
	Enriched           int
	NotEnriched        int
	EnrichFailed       int
	Errors             []error
	DryRun             bool
}

// RunModerationPass runs the staged moderation pipeline. Affairs that
// already carry a pending review are excluded by the store query, which
// makes re-runs idempotent: a second run with no new drafts classifies
// nothing. Classification only ever writes a pending ModerationReview; the
// affair itself is untouched until ApplyReview. A dry run counts what each
// phase would touch without writing or calling the classifier, and a
// missing classifier only aborts outside dry run.
func (p *ModerationPipeline) RunModerationPass(ctx context.Context, opts PassOptions) (*ModerationStats, error) {
	// Dry runs never reach the classifier, so they work without one.
	if !opts.DryRun && p.classifier == nil {
		return nil, errors.New("no classifier configured: set llm.api_key or OPENAI_API_KEY")
	}

	stats := &ModerationStats{DryRun: opts.DryRun}

	// Phase 1: duplicates, fully resolved before any classification so the
	// classifier never wastes calls on records about to be merged away.
	pairs, err := p.detector.FindCandidates(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("duplicate detection: %w", err)
	}
	stats.Dedup = p.merger.ResolvePairs(ctx, pairs, opts.DryRun)

	// Phase 2: classification.
	affairs, err := p.store.ListDraftAffairsWithoutPendingReview(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing unreviewed drafts: %w", err)
	}

	for _, affair := range affairs {
		if opts.DryRun {
			p.logger.Info("dry run, affair would be classified",
				"affair", affair.ID, "title", affair.Title)
			stats.Classified++
			continue
		}
		if err := p.classifyAffair(ctx, affair); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.ClassifyFailed++
			stats.Errors = append(stats.Errors, fmt.Errorf("affair %s: %w", affair.ID, err))
			continue
		}
		stats.Classified++
	}

	// Phase 3: enrichment of reject reviews flagged thin.
	reviews, err := p.store.ListPendingRejectReviews(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing reject reviews: %w", err)
	}
	for _, review := range reviews {
		if !review.EnrichmentEligible() {
			continue
		}
		stats.EnrichmentEligible++
		if opts.DryRun {
			continue
		}
		result, err := p.enricher.EnrichAffair(ctx, review.AffairID)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.EnrichFailed++
			stats.Errors = append(stats.Errors, fmt.Errorf("enriching affair %s: %w", review.AffairID, err))
			continue
		}
		if result.Enriched {
			stats.Enriched++
		} else {
			stats.NotEnriched++
		}
	}

	return stats, nil
}

// classifyAffair assembles context, calls the classifier through the rate
// limiter and persists the verdict as a new pending review.
func (p *ModerationPipeline) classifyAffair(ctx context.Context, affair *entities.Affair) error {
	affairCtx, err := p.buildContext(ctx, affair)
	if err != nil {
		return err
	}

	if err := p.limiter.WaitForSlot(ctx); err != nil {
		return err
	}

	classification, err := p.callClassifier(ctx, *affairCtx)
	if err != nil {
		return err
	}

	review := &entities.ModerationReview{
		ID:             uuid.New().String(),
		AffairID:       affair.ID,
		Recommendation: classification.Recommendation,
		Confidence:     clampConfidence(classification.Confidence),
		Reasoning:      classification.Reasoning,
		Corrections:    classification.Corrections,
		Issues:         classification.Issues,
		CreatedAt:      p.now(),
	}
	if err := p.store.SaveReview(ctx, review); err != nil {
		return fmt.Errorf("saving review: %w", err)
	}
	return nil
}

// callClassifier makes one classification call with the per-call timeout.
// A rate-limit signal triggers exactly one fixed pause and one retry of the
// same item; a second signal becomes the item's failure.
func (p *ModerationPipeline) callClassifier(ctx context.Context, affairCtx ports.AffairContext) (*ports.Classification, error) {
	classification, err := p.callOnce(ctx, affairCtx)
	if errors.Is(err, ports.ErrRateLimited) {
		if pauseErr := p.limiter.OnRateLimited(ctx); pauseErr != nil {
			return nil, pauseErr
		}
		classification, err = p.callOnce(ctx, affairCtx)
	}
	return classification, err
}

func (p *ModerationPipeline) callOnce(ctx context.Context, affairCtx ports.AffairContext) (*ports.Classification, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.classifier.ClassifyAffair(callCtx, affairCtx)
}

// buildContext assembles the structured classification context, with the
// figure's other affair titles as duplicate hints.
func (p *ModerationPipeline) buildContext(ctx context.Context, affair *entities.Affair) (*ports.AffairContext, error) {
	figure, err := p.store.FindFigureByID(ctx, affair.FigureID)
	if err != nil {
		return nil, fmt.Errorf("loading figure: %w", err)
	}
	figureName := ""
	if figure != nil {
		figureName = figure.FullName
	}

	siblings, err := p.store.ListSiblingAffairTitles(ctx, affair.FigureID, affair.ID)
	if err != nil {
		return nil, fmt.Errorf("loading sibling titles: %w", err)
	}

	affairCtx := &ports.AffairContext{
		AffairID:        affair.ID,
		FigureName:      figureName,
		Title:           affair.Title,
		Description:     affair.Description,
		OffenseCategory: affair.OffenseCategory,
		JudicialStatus:  string(affair.JudicialStatus),
		SiblingTitles:   siblings,
	}
	if affair.FactsDate != nil {
		affairCtx.FactsDate = affair.FactsDate.Format("2006-01-02")
	}
	if affair.DecisionDate != nil {
		affairCtx.DecisionDate = affair.DecisionDate.Format("2006-01-02")
	}
	for _, src := range affair.Sources {
		affairCtx.Sources = append(affairCtx.Sources, ports.SourceRef{
			URL:       src.URL,
			Title:     src.Title,
			Publisher: src.Publisher,
		})
	}
	return affairCtx, nil
}

// ApplyReview is the deliberate second transition of the human-in-the-loop
// flow: it stamps the pending review applied and moves the affair to the
// recommended status in one transaction. Classification never does this.
func (p *ModerationPipeline) ApplyReview(ctx context.Context, reviewID string) (entities.AffairStatus, error) {
	review, err := p.store.FindReviewByID(ctx, reviewID)
	if err != nil {
		return "", fmt.Errorf("loading review: %w", err)
	}
	if review == nil {
		return "", fmt.Errorf("review not found: %s", reviewID)
	}
	if !review.Pending() {
		return "", fmt.Errorf("review %s already applied", reviewID)
	}

	var status entities.AffairStatus
	switch review.Recommendation {
	case entities.RecommendPublish:
		status = entities.AffairPublished
	case entities.RecommendReject:
		status = entities.AffairRejected
	case entities.RecommendNeedsReview:
		return "", fmt.Errorf("review %s needs a manual decision, cannot be auto-applied", reviewID)
	default:
		return "", fmt.Errorf("unknown recommendation %q", review.Recommendation)
	}

	if status == entities.AffairPublished {
		affair, err := p.store.FindAffairByID(ctx, review.AffairID)
		if err != nil {
			return "", fmt.Errorf("loading affair: %w", err)
		}
		if affair == nil {
			return "", fmt.Errorf("affair not found: %s", review.AffairID)
		}
		if len(affair.Sources) == 0 {
			return "", fmt.Errorf("affair %s has no sources, cannot publish", affair.ID)
		}
	}

	if err := p.store.ApplyReview(ctx, reviewID, status); err != nil {
		return "", fmt.Errorf("applying review: %w", err)
	}
	p.logger.Info("review applied", "review", reviewID, "status", string(status))
	return status, nil
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
