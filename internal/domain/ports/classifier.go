package ports

import (
	"context"
	"errors"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
)

// ErrRateLimited signals that the classifier backend refused the call for
// rate-limit reasons. The pipeline reacts with one fixed pause and a single
// retry of the same item.
var ErrRateLimited = errors.New("classifier backend rate limited")

// SourceRef is the slim source view passed in classification context.
type SourceRef struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Publisher string `json:"publisher,omitempty"`
}

// AffairContext is the structured context assembled for one classification
// call. Sibling titles act as duplicate hints.
type AffairContext struct {
	AffairID        string      `json:"affair_id"`
	FigureName      string      `json:"figure_name"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	OffenseCategory string      `json:"offense_category,omitempty"`
	JudicialStatus  string      `json:"judicial_status,omitempty"`
	FactsDate       string      `json:"facts_date,omitempty"`
	DecisionDate    string      `json:"decision_date,omitempty"`
	Sources         []SourceRef `json:"sources,omitempty"`
	SiblingTitles   []string    `json:"sibling_titles,omitempty"`
}

// Classification is the classifier's verdict on one affair.
type Classification struct {
	Recommendation entities.Recommendation     `json:"recommendation"`
	Confidence     int                         `json:"confidence"`
	Reasoning      string                      `json:"reasoning"`
	Corrections    *entities.AffairCorrections `json:"corrections,omitempty"`
	Issues         []entities.ReviewIssue      `json:"issues,omitempty"`
}

// ExtractionHints steer structured extraction from scraped text.
type ExtractionHints struct {
	FigureName string
	Title      string
}

// ExtractedAffair is the structured result of extracting affair facts from
// scraped page text. Dates are ISO strings as returned by the model; empty
// strings mean "not found".
type ExtractedAffair struct {
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	JudicialStatus  string `json:"judicial_status,omitempty"`
	OffenseCategory string `json:"offense_category,omitempty"`
	SentenceDetail  string `json:"sentence_detail,omitempty"`
	CourtName       string `json:"court_name,omitempty"`
	FactsDate       string `json:"facts_date,omitempty"`
	DecisionDate    string `json:"decision_date,omitempty"`
	Confidence      int    `json:"confidence"`
	Reasoning       string `json:"reasoning,omitempty"`
}

// Classifier defines the AI moderation operations.
type Classifier interface {
	// ClassifyAffair produces a publication recommendation for the affair.
	ClassifyAffair(ctx context.Context, affairCtx AffairContext) (*Classification, error)

	// ExtractAffair structures affair facts out of scraped page text.
	ExtractAffair(ctx context.Context, text string, hints ExtractionHints) (*ExtractedAffair, error)
}
