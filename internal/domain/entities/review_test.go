package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestModerationReviewPending(t *testing.T) {
	review := &ModerationReview{ID: "r1"}
	assert.True(t, review.Pending())

	applied := time.Now()
	review.AppliedAt = &applied
	assert.False(t, review.Pending())
}

func TestEnrichmentEligible(t *testing.T) {
	applied := time.Now()

	tests := []struct {
		name     string
		review   ModerationReview
		eligible bool
	}{
		{
			name: "pending reject with missing source",
			review: ModerationReview{
				Recommendation: RecommendReject,
				Issues:         []ReviewIssue{{Type: IssueMissingSource}},
			},
			eligible: true,
		},
		{
			name: "pending reject with thin description",
			review: ModerationReview{
				Recommendation: RecommendReject,
				Issues:         []ReviewIssue{{Type: IssueThinDescription}},
			},
			eligible: true,
		},
		{
			name: "reject with only unfixable issues",
			review: ModerationReview{
				Recommendation: RecommendReject,
				Issues: []ReviewIssue{
					{Type: IssueOffTopic},
					{Type: IssueUnverifiable},
				},
			},
			eligible: false,
		},
		{
			name: "reject without issues",
			review: ModerationReview{
				Recommendation: RecommendReject,
			},
			eligible: false,
		},
		{
			name: "publish recommendation never eligible",
			review: ModerationReview{
				Recommendation: RecommendPublish,
				Issues:         []ReviewIssue{{Type: IssueMissingSource}},
			},
			eligible: false,
		},
		{
			name: "applied review never eligible",
			review: ModerationReview{
				Recommendation: RecommendReject,
				Issues:         []ReviewIssue{{Type: IssueMissingSource}},
				AppliedAt:      &applied,
			},
			eligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eligible, tt.review.EnrichmentEligible())
		})
	}
}

func TestAffairCorrectionsEmpty(t *testing.T) {
	var nilCorrections *AffairCorrections
	assert.True(t, nilCorrections.Empty())
	assert.True(t, (&AffairCorrections{}).Empty())

	title := "corrigé"
	assert.False(t, (&AffairCorrections{Title: &title}).Empty())
}
