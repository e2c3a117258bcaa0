package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
)

var testNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func TestComputeProminenceMandateWeights(t *testing.T) {
	tests := []struct {
		name     string
		figure   *entities.Figure
		expected int
	}{
		{
			name:     "no mandates no activity",
			figure:   &entities.Figure{},
			expected: 0,
		},
		{
			name: "current president",
			figure: &entities.Figure{
				Mandates: []entities.Mandate{{Role: entities.RolePresident, Current: true}},
			},
			// 400 mandate weight plus the current-mandate bonus.
			expected: 500,
		},
		{
			name: "past minister halved, no recency",
			figure: &entities.Figure{
				Mandates: []entities.Mandate{{Role: entities.RoleMinister, Current: false}},
			},
			expected: 175,
		},
		{
			name: "recently ended deputy mandate",
			figure: &entities.Figure{
				Mandates: []entities.Mandate{{
					Role:    entities.RoleDeputy,
					Current: false,
					End:     timeRef(testNow.AddDate(-2, 0, 0)),
				}},
			},
			// 300*0.5 plus the recent-mandate bonus.
			expected: 190,
		},
		{
			name: "active party role only",
			figure: &entities.Figure{
				PartyRoles: []entities.PartyRoleHistory{{Role: "secretaire general"}},
			},
			// 150 base plus the active-role bonus.
			expected: 210,
		},
		{
			name: "best of several mandates wins",
			figure: &entities.Figure{
				Mandates: []entities.Mandate{
					{Role: entities.RoleLocalCouncil, Current: true},
					{Role: entities.RoleMinister, Current: true},
				},
			},
			expected: 450,
		},
		{
			name: "unknown role contributes nothing",
			figure: &entities.Figure{
				Mandates: []entities.Mandate{{Role: entities.MandateRole("prefect"), Current: false}},
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeProminence(tt.figure, testNow))
		})
	}
}

func TestComputeProminenceActivityCaps(t *testing.T) {
	figure := &entities.Figure{
		Activity: entities.ActivityCounts{
			Votes:             40, // 20 points
			MediaMentions:     10, // 20 points
			FactCheckMentions: 2,  // 10 points
		},
	}
	assert.Equal(t, 50, ComputeProminence(figure, testNow))

	// Each activity sub-score saturates at its own cap, then the combined
	// activity score saturates again.
	saturated := &entities.Figure{
		Activity: entities.ActivityCounts{
			Votes:             100000,
			MediaMentions:     100000,
			FactCheckMentions: 100000,
		},
	}
	assert.Equal(t, 200, ComputeProminence(saturated, testNow))
}

func TestComputeProminenceRecentMediaAndAffairs(t *testing.T) {
	figure := &entities.Figure{
		Activity: entities.ActivityCounts{
			RecentMediaMentions: 4, // 20 points
			AffairCount:         2, // 20 points
		},
	}
	assert.Equal(t, 40, ComputeProminence(figure, testNow))

	saturated := &entities.Figure{
		Activity: entities.ActivityCounts{
			RecentMediaMentions: 1000,
			AffairCount:         1000,
		},
	}
	assert.Equal(t, 150+50, ComputeProminence(saturated, testNow))
}

func TestComputeProminenceNeverExceedsMax(t *testing.T) {
	figure := &entities.Figure{
		Mandates:   []entities.Mandate{{Role: entities.RolePresident, Current: true}},
		PartyRoles: []entities.PartyRoleHistory{{Role: "president du parti"}},
		Activity: entities.ActivityCounts{
			Votes:               1_000_000,
			MediaMentions:       1_000_000,
			FactCheckMentions:   1_000_000,
			RecentMediaMentions: 1_000_000,
			AffairCount:         1_000_000,
		},
	}
	score := ComputeProminence(figure, testNow)
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, MaxProminenceScore)
	assert.Equal(t, 900, score)
}

func TestRunProminencePass(t *testing.T) {
	store := newMockStore()
	store.figures["f1"] = &entities.Figure{
		ID:       "f1",
		FullName: "Alice Martin",
		Mandates: []entities.Mandate{{Role: entities.RoleDeputy, Current: true}},
	}
	store.figures["f2"] = &entities.Figure{
		ID:              "f2",
		FullName:        "Bernard Long",
		ProminenceScore: 0,
	}

	service := NewProminenceService(store, testLogger())
	service.now = func() time.Time { return testNow }

	stats, err := service.RunProminencePass(context.Background(), PassOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 400, store.scoreUpdates["f1"])
	assert.NotContains(t, store.scoreUpdates, "f2")
	require.Len(t, stats.Sample, 1)
	assert.Equal(t, "Alice Martin", stats.Sample[0].Name)
	assert.Equal(t, 0, stats.Sample[0].From)
	assert.Equal(t, 400, stats.Sample[0].To)
}

func TestRunProminencePassDryRun(t *testing.T) {
	store := newMockStore()
	store.figures["f1"] = &entities.Figure{
		ID:       "f1",
		FullName: "Alice Martin",
		Mandates: []entities.Mandate{{Role: entities.RoleSenator, Current: true}},
	}

	service := NewProminenceService(store, testLogger())
	service.now = func() time.Time { return testNow }

	stats, err := service.RunProminencePass(context.Background(), PassOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, stats.DryRun)
	assert.Equal(t, 1, stats.Updated)
	assert.Empty(t, store.scoreUpdates)
}

func timeRef(t time.Time) *time.Time {
	return &t
}
