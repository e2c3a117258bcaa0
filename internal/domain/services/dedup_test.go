package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
)

func makeAffair(id, figureID, title string, created time.Time, urls ...string) *entities.Affair {
	affair := &entities.Affair{
		ID:                id,
		FigureID:          figureID,
		Title:             title,
		PublicationStatus: entities.AffairDraft,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	for i, u := range urls {
		affair.Sources = append(affair.Sources, entities.Source{
			ID:       id + "-src-" + u,
			AffairID: id,
			URL:      u,
			Position: i,
		})
	}
	return affair
}

func newTestDetector(store *mockStore) *DuplicateDetector {
	return NewDuplicateDetector(store, nil, nil, testLogger())
}

func TestFindCandidatesCertainTier(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	// Scheme, www prefix and trailing slash differences still compare equal.
	store.affairs["a1"] = makeAffair("a1", "fig", "Emplois fictifs presumes", created,
		"https://www.lemonde.fr/article-1/")
	store.affairs["a2"] = makeAffair("a2", "fig", "Soupcons d'emplois fictifs", created.Add(time.Hour),
		"http://lemonde.fr/article-1")

	pairs, err := newTestDetector(store).FindCandidates(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, TierCertain, pairs[0].Tier)
	assert.Equal(t, "a1", pairs[0].Older.ID)
	assert.Equal(t, "a2", pairs[0].Newer.ID)
	assert.Equal(t, 1.0, pairs[0].Score)
}

func TestFindCandidatesHighTier(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	factsA := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	factsB := factsA.Add(20 * 24 * time.Hour)

	a1 := makeAffair("a1", "fig", "Détournement de fonds publics", created, "https://site-a.fr/x")
	a1.FactsDate = &factsA
	a2 := makeAffair("a2", "fig", "Detournement de fonds publics", created.Add(time.Hour), "https://site-b.fr/y")
	a2.FactsDate = &factsB
	store.affairs["a1"] = a1
	store.affairs["a2"] = a2

	pairs, err := newTestDetector(store).FindCandidates(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, TierHigh, pairs[0].Tier)
}

func TestFindCandidatesHighTierRejectsDistantDates(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	factsA := time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)
	factsB := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	a1 := makeAffair("a1", "fig", "Fraude fiscale", created, "https://site-a.fr/x")
	a1.FactsDate = &factsA
	a2 := makeAffair("a2", "fig", "Fraude fiscale", created.Add(time.Hour), "https://site-b.fr/y")
	a2.FactsDate = &factsB
	store.affairs["a1"] = a1
	store.affairs["a2"] = a2

	pairs, err := newTestDetector(store).FindCandidates(context.Background(), 0)
	require.NoError(t, err)

	// Same facts four years apart are two distinct procedures; the identical
	// title alone only carries a weaker signal.
	require.Len(t, pairs, 1)
	assert.Equal(t, TierPossible, pairs[0].Tier)
}

func TestFindCandidatesPossibleTier(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	store.affairs["a1"] = makeAffair("a1", "fig", "Soupçons de favoritisme marché public Marseille", created, "https://site-a.fr/x")
	store.affairs["a2"] = makeAffair("a2", "fig", "Favoritisme marché public Marseille", created.Add(time.Hour), "https://site-b.fr/y")

	pairs, err := newTestDetector(store).FindCandidates(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, TierPossible, pairs[0].Tier)
	assert.GreaterOrEqual(t, pairs[0].Score, 0.5)
}

func TestFindCandidatesIgnoresCrossFigurePairs(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	store.affairs["a1"] = makeAffair("a1", "fig-1", "Prise illégale d'intérêts", created, "https://presse.fr/a")
	store.affairs["a2"] = makeAffair("a2", "fig-2", "Prise illégale d'intérêts", created.Add(time.Hour), "https://presse.fr/a")

	pairs, err := newTestDetector(store).FindCandidates(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestChooseWinner(t *testing.T) {
	earlier := testNow.AddDate(0, -2, 0)
	later := testNow.AddDate(0, -1, 0)

	moreSources := makeAffair("rich", "fig", "t", later, "https://a.fr/1", "https://a.fr/2")
	fewerSources := makeAffair("poor", "fig", "t", earlier, "https://a.fr/1")

	winner, loser := chooseWinner(fewerSources, moreSources)
	assert.Equal(t, "rich", winner.ID)
	assert.Equal(t, "poor", loser.ID)

	// Equal source counts fall back to creation order.
	old := makeAffair("old", "fig", "t", earlier, "https://a.fr/1")
	young := makeAffair("young", "fig", "t", later, "https://a.fr/1")
	winner, loser = chooseWinner(young, old)
	assert.Equal(t, "old", winner.ID)
	assert.Equal(t, "young", loser.ID)
}

func TestResolvePairsMergesCertainAndHigh(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	older := makeAffair("older", "fig", "t", created, "https://a.fr/1", "https://a.fr/2")
	newer := makeAffair("newer", "fig", "t", created.Add(time.Hour), "https://a.fr/1")
	store.affairs["older"] = older
	store.affairs["newer"] = newer

	merger := NewReconciliationMerger(store, nil, testLogger())
	pairs := []DuplicatePair{
		{Older: older, Newer: newer, Score: 1.0, Tier: TierCertain, Reason: "identical source URL sets"},
	}

	stats := merger.ResolvePairs(context.Background(), pairs, false)

	assert.Equal(t, 1, stats.Merged)
	assert.Empty(t, stats.Errors)
	require.Len(t, store.merged, 1)
	assert.Equal(t, [2]string{"older", "newer"}, store.merged[0])
}

func TestResolvePairsCleansVectorIndex(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	older := makeAffair("older", "fig", "t", created, "https://a.fr/1", "https://a.fr/2")
	newer := makeAffair("newer", "fig", "t", created.Add(time.Hour), "https://a.fr/1")
	store.affairs["older"] = older
	store.affairs["newer"] = newer

	index := &mockVectorIndex{}
	merger := NewReconciliationMerger(store, index, testLogger())
	pairs := []DuplicatePair{
		{Older: older, Newer: newer, Score: 1.0, Tier: TierCertain},
	}

	stats := merger.ResolvePairs(context.Background(), pairs, false)

	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, []string{"newer"}, index.deleted, "the merged-away record leaves the index")

	// A failing index delete never undoes or fails the merge itself.
	store.affairs["older"] = makeAffair("older", "fig", "t", created, "https://a.fr/1", "https://a.fr/2")
	store.affairs["again"] = makeAffair("again", "fig", "t", created.Add(time.Hour), "https://a.fr/1")
	index.deleteErr = errors.New("index down")

	stats = merger.ResolvePairs(context.Background(), []DuplicatePair{
		{Older: store.affairs["older"], Newer: store.affairs["again"], Score: 1.0, Tier: TierCertain},
	}, false)
	assert.Equal(t, 1, stats.Merged)
	assert.Empty(t, stats.Errors)
}

func TestResolvePairsFlagsPossibleOnly(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	older := makeAffair("older", "fig", "Favoritisme marché public", created, "https://a.fr/1")
	newer := makeAffair("newer", "fig", "Soupçons de favoritisme marché", created.Add(time.Hour), "https://b.fr/2")
	store.affairs["older"] = older
	store.affairs["newer"] = newer

	merger := NewReconciliationMerger(store, nil, testLogger())
	merger.now = func() time.Time { return testNow }
	pairs := []DuplicatePair{
		{Older: older, Newer: newer, Score: 0.6, Tier: TierPossible, Reason: "title token overlap 0.60"},
	}

	stats := merger.ResolvePairs(context.Background(), pairs, false)

	assert.Equal(t, 1, stats.Flagged)
	assert.Empty(t, store.merged, "possible pairs are never auto-merged")
	require.Len(t, store.reviews, 1)
	for _, review := range store.reviews {
		assert.Equal(t, "newer", review.AffairID)
		assert.Equal(t, "older", review.DuplicateOfID)
		assert.Equal(t, entities.RecommendNeedsReview, review.Recommendation)
		assert.Equal(t, 60, review.Confidence)
		assert.True(t, review.Pending())
	}

	// A second pass sees the pending flag and writes nothing new.
	again := merger.ResolvePairs(context.Background(), pairs, false)
	assert.Equal(t, 1, again.AlreadyFlagged)
	assert.Equal(t, 0, again.Flagged)
	assert.Len(t, store.reviews, 1)
}

func TestResolvePairsDryRun(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	older := makeAffair("older", "fig", "t", created, "https://a.fr/1")
	newer := makeAffair("newer", "fig", "t", created.Add(time.Hour), "https://b.fr/2")

	merger := NewReconciliationMerger(store, nil, testLogger())
	pairs := []DuplicatePair{
		{Older: older, Newer: newer, Score: 0.9, Tier: TierHigh},
		{Older: older, Newer: newer, Score: 0.6, Tier: TierPossible},
	}

	stats := merger.ResolvePairs(context.Background(), pairs, true)

	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 1, stats.Flagged)
	assert.Empty(t, store.merged)
	assert.Empty(t, store.reviews)
}

func TestResolvePairsErrorDoesNotAbort(t *testing.T) {
	store := newMockStore()
	created := testNow.AddDate(0, -1, 0)
	olderA := makeAffair("older-a", "fig", "t", created, "https://a.fr/1")
	newerA := makeAffair("newer-a", "fig", "t", created.Add(time.Hour), "https://b.fr/2")
	olderB := makeAffair("older-b", "fig", "u", created, "https://c.fr/3")
	newerB := makeAffair("newer-b", "fig", "u", created.Add(time.Hour), "https://d.fr/4")

	merger := NewReconciliationMerger(store, nil, testLogger())
	merger.now = func() time.Time { return testNow }

	store.mergeErr = errors.New("locked")
	pairs := []DuplicatePair{
		{Older: olderA, Newer: newerA, Score: 1.0, Tier: TierCertain},
		{Older: olderB, Newer: newerB, Score: 0.6, Tier: TierPossible},
	}

	stats := merger.ResolvePairs(context.Background(), pairs, false)

	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 0, stats.Merged)
	assert.Equal(t, 1, stats.Flagged, "the flag still lands after the merge failure")
}
