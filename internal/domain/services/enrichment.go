package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

const (
	// DefaultEnrichMinConfidence is the floor below which extraction results
	// are discarded unwritten.
	DefaultEnrichMinConfidence = 60

	enrichSearchResults = 8
	enrichMaxPages      = 3
	enrichMinPageText   = 200
	enrichMaxText       = 12000
)

// EnrichmentResult reports what one enrichment attempt did. Enriched is
// false when nothing usable was found or the extraction confidence was below
// the floor; in both cases nothing was written.
type EnrichmentResult struct {
	AffairID     string
	Enriched     bool
	SourcesAdded int
	Changes      []string
	Reasoning    string
}

// EnrichmentAgent augments thin rejected affairs with externally sourced,
// AI-extracted detail: web search, readable-text extraction, structured
// extraction, then one atomic update. It never sets a review to publish.
type EnrichmentAgent struct {
	store         ports.Store
	search        ports.SearchClient
	extractor     ports.PageExtractor
	classifier    ports.Classifier
	limiter       *RateLimiter
	logger        *slog.Logger
	now           func() time.Time
	callTimeout   time.Duration
	minConfidence int
}

// NewEnrichmentAgent creates an enrichment agent.
func NewEnrichmentAgent(
	store ports.Store,
	search ports.SearchClient,
	extractor ports.PageExtractor,
	classifier ports.Classifier,
	limiter *RateLimiter,
	logger *slog.Logger,
) *EnrichmentAgent {
	return &EnrichmentAgent{
		store:         store,
		search:        search,
		extractor:     extractor,
		classifier:    classifier,
		limiter:       limiter,
		logger:        logger,
		now:           time.Now,
		callTimeout:   DefaultCallTimeout,
		minConfidence: DefaultEnrichMinConfidence,
	}
}

// SetMinConfidence overrides the extraction confidence floor. Values of
// zero or less keep the default.
func (a *EnrichmentAgent) SetMinConfidence(floor int) {
	if floor > 0 {
		a.minConfidence = floor
	}
}

// EnrichAffair attempts to enrich one affair. It requires a pending reject
// review flagged missing-source or thin-description on the affair; the
// review's recommendation is upgraded to needs-review on success, never to
// publish, regardless of extraction confidence.
func (a *EnrichmentAgent) EnrichAffair(ctx context.Context, affairID string) (*EnrichmentResult, error) {
	if a.classifier == nil {
		return nil, errors.New("no classifier configured: set llm.api_key or OPENAI_API_KEY")
	}

	affair, err := a.store.FindAffairByID(ctx, affairID)
	if err != nil {
		return nil, fmt.Errorf("loading affair: %w", err)
	}
	if affair == nil {
		return nil, fmt.Errorf("affair not found: %s", affairID)
	}

	review := eligibleReview(affair)
	if review == nil {
		return nil, fmt.Errorf("affair %s has no enrichment-eligible review", affairID)
	}

	figure, err := a.store.FindFigureByID(ctx, affair.FigureID)
	if err != nil {
		return nil, fmt.Errorf("loading figure: %w", err)
	}
	figureName := ""
	if figure != nil {
		figureName = figure.FullName
	}

	result := &EnrichmentResult{AffairID: affairID}

	query := strings.TrimSpace(figureName + " " + affair.Title)
	hits, err := a.search.Search(ctx, query, enrichSearchResults)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	pages := a.fetchPages(ctx, affair, hits)
	if len(pages) == 0 {
		result.Reasoning = "no extractable unlinked sources found"
		return result, nil
	}

	extracted, err := a.extract(ctx, pages, figureName, affair.Title)
	if err != nil {
		return nil, fmt.Errorf("structured extraction: %w", err)
	}

	if extracted.Confidence < a.minConfidence {
		result.Reasoning = fmt.Sprintf("extraction confidence %d below floor %d, discarded", extracted.Confidence, a.minConfidence)
		a.logger.Info("enrichment discarded", "affair", affairID, "confidence", extracted.Confidence)
		return result, nil
	}

	changes, changed := fieldChanges(affair, extracted)
	newSources := a.sourcesFromPages(affair, pages)

	if len(changed) == 0 && len(newSources) == 0 {
		result.Reasoning = "extraction produced nothing new"
		return result, nil
	}

	update := ports.EnrichmentUpdate{
		AffairID:   affair.ID,
		ReviewID:   review.ID,
		Changes:    changes,
		NewSources: newSources,
		Reasoning:  extracted.Reasoning,
		Details: map[string]any{
			"changed_fields": changed,
			"sources_added":  len(newSources),
			"confidence":     extracted.Confidence,
			"query":          query,
		},
	}
	if err := a.store.ApplyEnrichment(ctx, update); err != nil {
		return nil, fmt.Errorf("applying enrichment: %w", err)
	}

	result.Enriched = true
	result.SourcesAdded = len(newSources)
	result.Changes = changed
	result.Reasoning = extracted.Reasoning
	a.logger.Info("affair enriched", "affair", affairID, "fields", changed, "sources", len(newSources))
	return result, nil
}

// eligibleReview returns the most recent pending reject review flagged as
// thin, or nil.
func eligibleReview(affair *entities.Affair) *entities.ModerationReview {
	var best *entities.ModerationReview
	for i := range affair.Reviews {
		r := &affair.Reviews[i]
		if !r.EnrichmentEligible() {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	return best
}

// fetchPages extracts readable text from search hits not already linked as
// sources. Extraction failures are tolerated per URL.
func (a *EnrichmentAgent) fetchPages(ctx context.Context, affair *entities.Affair, hits []ports.SearchResult) []*ports.ExtractedPage {
	var pages []*ports.ExtractedPage
	for _, hit := range hits {
		if len(pages) >= enrichMaxPages {
			break
		}
		if hit.URL == "" || affair.HasSourceURL(hit.URL) {
			continue
		}
		page, err := a.extractor.Extract(ctx, hit.URL)
		if err != nil {
			a.logger.Debug("page extraction failed", "url", hit.URL, "err", err)
			continue
		}
		if len(page.Text) < enrichMinPageText {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// extract runs the structured-extraction call through the rate limiter, with
// the same single pause-and-retry on a rate-limit signal as classification.
func (a *EnrichmentAgent) extract(ctx context.Context, pages []*ports.ExtractedPage, figureName, title string) (*ports.ExtractedAffair, error) {
	var b strings.Builder
	for _, page := range pages {
		if b.Len() > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s\n%s", page.URL, page.Title, page.Text)
	}
	text := b.String()
	if len(text) > enrichMaxText {
		text = text[:enrichMaxText]
	}

	hints := ports.ExtractionHints{FigureName: figureName, Title: title}

	if err := a.limiter.WaitForSlot(ctx); err != nil {
		return nil, err
	}
	extracted, err := a.extractOnce(ctx, text, hints)
	if errors.Is(err, ports.ErrRateLimited) {
		if pauseErr := a.limiter.OnRateLimited(ctx); pauseErr != nil {
			return nil, pauseErr
		}
		extracted, err = a.extractOnce(ctx, text, hints)
	}
	return extracted, err
}

func (a *EnrichmentAgent) extractOnce(ctx context.Context, text string, hints ports.ExtractionHints) (*ports.ExtractedAffair, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	return a.classifier.ExtractAffair(callCtx, text, hints)
}

// fieldChanges maps provided (non-empty) extracted fields onto store
// changes, reporting which field names changed. Unparseable dates are
// dropped rather than failing the enrichment.
func fieldChanges(affair *entities.Affair, extracted *ports.ExtractedAffair) (ports.AffairFieldChanges, []string) {
	var changes ports.AffairFieldChanges
	var changed []string

	setString := func(name string, value string, current string, dst **string) {
		value = strings.TrimSpace(value)
		if value == "" || value == current {
			return
		}
		*dst = &value
		changed = append(changed, name)
	}

	setString("title", extracted.Title, affair.Title, &changes.Title)
	setString("description", extracted.Description, affair.Description, &changes.Description)
	setString("judicial_status", extracted.JudicialStatus, string(affair.JudicialStatus), &changes.JudicialStatus)
	setString("offense_category", extracted.OffenseCategory, affair.OffenseCategory, &changes.OffenseCategory)
	setString("sentence_detail", extracted.SentenceDetail, affair.SentenceDetail, &changes.SentenceDetail)
	setString("court_name", extracted.CourtName, affair.CourtName, &changes.CourtName)

	if t, ok := parseISODate(extracted.FactsDate); ok && (affair.FactsDate == nil || !affair.FactsDate.Equal(t)) {
		changes.FactsDate = &t
		changed = append(changed, "facts_date")
	}
	if t, ok := parseISODate(extracted.DecisionDate); ok && (affair.DecisionDate == nil || !affair.DecisionDate.Equal(t)) {
		changes.DecisionDate = &t
		changed = append(changed, "decision_date")
	}

	return changes, changed
}

func parseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sourcesFromPages builds press sources for the pages used, skipping URLs
// the affair already links.
func (a *EnrichmentAgent) sourcesFromPages(affair *entities.Affair, pages []*ports.ExtractedPage) []entities.Source {
	position := len(affair.Sources)
	var sources []entities.Source
	for _, page := range pages {
		if affair.HasSourceURL(page.URL) {
			continue
		}
		sources = append(sources, entities.Source{
			ID:        uuid.New().String(),
			AffairID:  affair.ID,
			URL:       page.URL,
			Title:     page.Title,
			Publisher: hostOf(page.URL),
			Type:      entities.SourcePress,
			Position:  position,
			CreatedAt: a.now(),
		})
		position++
	}
	return sources
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
