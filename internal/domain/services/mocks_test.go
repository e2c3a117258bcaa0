package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

// mockStore is an in-memory ports.Store for service tests. Error fields
// inject failures per method.
type mockStore struct {
	figures map[string]*entities.Figure
	parties map[string]*entities.Party
	affairs map[string]*entities.Affair
	reviews map[string]*entities.ModerationReview
	audit   []entities.AuditEntry

	merged         [][2]string
	enrichments    []ports.EnrichmentUpdate
	statusUpdates  map[string]entities.FigureStatus
	scoreUpdates   map[string]int
	appliedReviews map[string]entities.AffairStatus

	mergeErr       error
	saveReviewErr  error
	listFiguresErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		figures:        make(map[string]*entities.Figure),
		parties:        make(map[string]*entities.Party),
		affairs:        make(map[string]*entities.Affair),
		reviews:        make(map[string]*entities.ModerationReview),
		statusUpdates:  make(map[string]entities.FigureStatus),
		scoreUpdates:   make(map[string]int),
		appliedReviews: make(map[string]entities.AffairStatus),
	}
}

func (m *mockStore) EnsureSchema(_ context.Context) error { return nil }
func (m *mockStore) Close() error                         { return nil }

func (m *mockStore) SaveFigure(_ context.Context, figure *entities.Figure) error {
	m.figures[figure.ID] = figure
	return nil
}

func (m *mockStore) FindFigureByID(_ context.Context, figureID string) (*entities.Figure, error) {
	return m.figures[figureID], nil
}

func (m *mockStore) ListFigures(_ context.Context, limit, offset int) ([]*entities.Figure, error) {
	if m.listFiguresErr != nil {
		return nil, m.listFiguresErr
	}
	out := make([]*entities.Figure, 0, len(m.figures))
	for _, f := range m.figures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) CountFigures(_ context.Context) (int, error) {
	return len(m.figures), nil
}

func (m *mockStore) UpdateFigureStatuses(_ context.Context, figureIDs []string, status entities.FigureStatus) error {
	for _, id := range figureIDs {
		m.statusUpdates[id] = status
		if f, ok := m.figures[id]; ok {
			f.PublicationStatus = status
		}
	}
	return nil
}

func (m *mockStore) UpdateProminenceScores(_ context.Context, scores map[string]int) error {
	for id, score := range scores {
		m.scoreUpdates[id] = score
		if f, ok := m.figures[id]; ok {
			f.ProminenceScore = score
		}
	}
	return nil
}

func (m *mockStore) SaveParty(_ context.Context, party *entities.Party) error {
	m.parties[party.ID] = party
	return nil
}

func (m *mockStore) ListParties(_ context.Context) ([]*entities.Party, error) {
	out := make([]*entities.Party, 0, len(m.parties))
	for _, p := range m.parties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) SaveAffair(_ context.Context, affair *entities.Affair) error {
	m.affairs[affair.ID] = affair
	return nil
}

func (m *mockStore) FindAffairByID(_ context.Context, affairID string) (*entities.Affair, error) {
	affair, ok := m.affairs[affairID]
	if !ok {
		return nil, nil
	}
	copied := *affair
	copied.Reviews = m.reviewsForAffair(affairID)
	return &copied, nil
}

func (m *mockStore) reviewsForAffair(affairID string) []entities.ModerationReview {
	var out []entities.ModerationReview
	for _, r := range m.reviews {
		if r.AffairID == affairID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *mockStore) ListActiveAffairs(_ context.Context, limit int) ([]*entities.Affair, error) {
	var out []*entities.Affair
	for _, a := range m.affairs {
		if a.PublicationStatus == entities.AffairDraft || a.PublicationStatus == entities.AffairPublished {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) ListDraftAffairsWithoutPendingReview(_ context.Context, limit int) ([]*entities.Affair, error) {
	var out []*entities.Affair
	for _, a := range m.affairs {
		if a.PublicationStatus != entities.AffairDraft {
			continue
		}
		if m.hasPendingReview(a.ID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) hasPendingReview(affairID string) bool {
	for _, r := range m.reviews {
		if r.AffairID == affairID && r.Pending() {
			return true
		}
	}
	return false
}

func (m *mockStore) ListSiblingAffairTitles(_ context.Context, figureID, excludeAffairID string) ([]string, error) {
	var titles []string
	for _, a := range m.affairs {
		if a.FigureID == figureID && a.ID != excludeAffairID {
			titles = append(titles, a.Title)
		}
	}
	sort.Strings(titles)
	return titles, nil
}

func (m *mockStore) MergeAffairs(_ context.Context, winnerID, loserID string) error {
	if m.mergeErr != nil {
		return m.mergeErr
	}
	m.merged = append(m.merged, [2]string{winnerID, loserID})
	delete(m.affairs, loserID)
	return nil
}

func (m *mockStore) SaveReview(_ context.Context, review *entities.ModerationReview) error {
	if m.saveReviewErr != nil {
		return m.saveReviewErr
	}
	m.reviews[review.ID] = review
	return nil
}

func (m *mockStore) FindReviewByID(_ context.Context, reviewID string) (*entities.ModerationReview, error) {
	return m.reviews[reviewID], nil
}

func (m *mockStore) PendingDuplicateReviewExists(_ context.Context, affairID, duplicateOfID string) (bool, error) {
	for _, r := range m.reviews {
		if !r.Pending() || r.DuplicateOfID == "" {
			continue
		}
		if (r.AffairID == affairID && r.DuplicateOfID == duplicateOfID) ||
			(r.AffairID == duplicateOfID && r.DuplicateOfID == affairID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) ListPendingRejectReviews(_ context.Context, limit int) ([]*entities.ModerationReview, error) {
	var out []*entities.ModerationReview
	for _, r := range m.reviews {
		if r.Pending() && r.Recommendation == entities.RecommendReject {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) ApplyReview(_ context.Context, reviewID string, status entities.AffairStatus) error {
	m.appliedReviews[reviewID] = status
	if r, ok := m.reviews[reviewID]; ok {
		now := r.CreatedAt
		r.AppliedAt = &now
		if a, found := m.affairs[r.AffairID]; found {
			a.PublicationStatus = status
		}
	}
	return nil
}

func (m *mockStore) ApplyEnrichment(_ context.Context, update ports.EnrichmentUpdate) error {
	m.enrichments = append(m.enrichments, update)
	if r, ok := m.reviews[update.ReviewID]; ok {
		r.Recommendation = entities.RecommendNeedsReview
		r.Reasoning = update.Reasoning
	}
	return nil
}

func (m *mockStore) LogAction(_ context.Context, action, affairID, figureID string, details map[string]any) error {
	m.audit = append(m.audit, entities.AuditEntry{
		Action:   action,
		AffairID: affairID,
		FigureID: figureID,
		Details:  details,
	})
	return nil
}

func (m *mockStore) FindAuditLog(_ context.Context, affairID string) ([]entities.AuditEntry, error) {
	var out []entities.AuditEntry
	for _, e := range m.audit {
		if e.AffairID == affairID {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockClassifier routes calls to injected functions and counts them.
type mockClassifier struct {
	classifyFn    func(ctx context.Context, affairCtx ports.AffairContext) (*ports.Classification, error)
	extractFn     func(ctx context.Context, text string, hints ports.ExtractionHints) (*ports.ExtractedAffair, error)
	classifyCalls int
	extractCalls  int
}

func (m *mockClassifier) ClassifyAffair(ctx context.Context, affairCtx ports.AffairContext) (*ports.Classification, error) {
	m.classifyCalls++
	return m.classifyFn(ctx, affairCtx)
}

func (m *mockClassifier) ExtractAffair(ctx context.Context, text string, hints ports.ExtractionHints) (*ports.ExtractedAffair, error) {
	m.extractCalls++
	return m.extractFn(ctx, text, hints)
}

// mockSearch returns canned hits.
type mockSearch struct {
	results []ports.SearchResult
	err     error
	queries []string
}

func (m *mockSearch) Search(_ context.Context, query string, limit int) ([]ports.SearchResult, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.results) > limit {
		return m.results[:limit], nil
	}
	return m.results, nil
}

// mockExtractor maps URLs to canned pages; unknown URLs fail.
type mockExtractor struct {
	pages map[string]*ports.ExtractedPage
	errs  map[string]error
}

func (m *mockExtractor) Extract(_ context.Context, url string) (*ports.ExtractedPage, error) {
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	if page, ok := m.pages[url]; ok {
		return page, nil
	}
	return nil, context.Canceled
}

// mockVectorIndex records deletions; the other operations are inert.
type mockVectorIndex struct {
	deleted   []string
	deleteErr error
}

func (m *mockVectorIndex) EnsureCollection(_ context.Context, _ uint64) error { return nil }

func (m *mockVectorIndex) Close() error { return nil }

func (m *mockVectorIndex) SaveAffairVector(_ context.Context, _, _ string, _ []float32) error {
	return nil
}

func (m *mockVectorIndex) SearchSimilar(_ context.Context, _ []float32, _, _ string, _ int) ([]ports.SimilarAffair, error) {
	return nil, nil
}

func (m *mockVectorIndex) DeleteAffairVector(_ context.Context, affairID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, affairID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// instantLimiter returns a rate limiter whose sleeps are recorded, not slept.
func instantLimiter(slept *[]string) *RateLimiter {
	limiter := NewRateLimiter(0, 0)
	limiter.sleep = func(_ context.Context, _ time.Duration) error {
		if slept != nil {
			*slept = append(*slept, "sleep")
		}
		return nil
	}
	return limiter
}
