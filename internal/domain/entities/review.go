package entities

import "time"

// Recommendation is the action a moderation review recommends.
type Recommendation string

const (
	RecommendPublish     Recommendation = "publish"
	RecommendReject      Recommendation = "reject"
	RecommendNeedsReview Recommendation = "needs_review"
)

// IssueType is a closed enumeration of problems a classifier can flag on an
// affair. Keeping it closed lets enrichment-eligibility checks be exhaustive.
type IssueType string

const (
	IssueMissingSource      IssueType = "missing_source"
	IssueThinDescription    IssueType = "thin_description"
	IssueUnverifiable       IssueType = "unverifiable"
	IssueDuplicateSuspected IssueType = "duplicate_suspected"
	IssueOffTopic           IssueType = "off_topic"
)

// ReviewIssue is one flagged problem with optional free-form detail.
type ReviewIssue struct {
	Type   IssueType `json:"type"`
	Detail string    `json:"detail,omitempty"`
}

// AffairCorrections carries field values the classifier suggests correcting.
// Nil pointers mean "no change proposed" for that field.
type AffairCorrections struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	JudicialStatus  *string `json:"judicial_status,omitempty"`
	OffenseCategory *string `json:"offense_category,omitempty"`
	SentenceDetail  *string `json:"sentence_detail,omitempty"`
	CourtName       *string `json:"court_name,omitempty"`
	FactsDate       *string `json:"facts_date,omitempty"`
	DecisionDate    *string `json:"decision_date,omitempty"`
}

// Empty reports whether no correction is proposed.
func (c *AffairCorrections) Empty() bool {
	if c == nil {
		return true
	}
	return c.Title == nil && c.Description == nil && c.JudicialStatus == nil &&
		c.OffenseCategory == nil && c.SentenceDetail == nil && c.CourtName == nil &&
		c.FactsDate == nil && c.DecisionDate == nil
}

// ModerationReview is a recommendation produced by classification or
// duplicate detection. AppliedAt stays nil while the review is pending;
// applying it is a separate, human-triggered transition.
type ModerationReview struct {
	ID             string             `json:"id"`
	AffairID       string             `json:"affair_id"`
	Recommendation Recommendation     `json:"recommendation"`
	Confidence     int                `json:"confidence"`
	Reasoning      string             `json:"reasoning"`
	Corrections    *AffairCorrections `json:"corrections,omitempty"`
	Issues         []ReviewIssue      `json:"issues,omitempty"`
	DuplicateOfID  string             `json:"duplicate_of_id,omitempty"`
	AppliedAt      *time.Time         `json:"applied_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Pending reports whether the review has not been applied yet.
func (r *ModerationReview) Pending() bool {
	return r.AppliedAt == nil
}

// EnrichmentEligible reports whether a pending reject review qualifies for
// the enrichment fallback (thin data flagged by the classifier).
func (r *ModerationReview) EnrichmentEligible() bool {
	if !r.Pending() || r.Recommendation != RecommendReject {
		return false
	}
	for _, issue := range r.Issues {
		switch issue.Type {
		case IssueMissingSource, IssueThinDescription:
			return true
		case IssueUnverifiable, IssueDuplicateSuspected, IssueOffTopic:
			// not fixable by adding press sources
		}
	}
	return false
}
