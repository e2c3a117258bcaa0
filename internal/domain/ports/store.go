// Package ports defines interfaces for external service communication.
package ports

import (
	"context"
	"time"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
)

// AffairFieldChanges carries parsed field values an enrichment wants to set.
// Nil pointers leave the stored value untouched.
type AffairFieldChanges struct {
	Title           *string
	Description     *string
	JudicialStatus  *string
	OffenseCategory *string
	SentenceDetail  *string
	CourtName       *string
	FactsDate       *time.Time
	DecisionDate    *time.Time
}

// Empty reports whether no field change is requested.
func (c *AffairFieldChanges) Empty() bool {
	if c == nil {
		return true
	}
	return c.Title == nil && c.Description == nil && c.JudicialStatus == nil &&
		c.OffenseCategory == nil && c.SentenceDetail == nil && c.CourtName == nil &&
		c.FactsDate == nil && c.DecisionDate == nil
}

// EnrichmentUpdate is the atomic write an accepted enrichment performs:
// field updates, appended sources, the review forced to needs-review, and an
// audit entry, all in one transaction.
type EnrichmentUpdate struct {
	AffairID   string
	ReviewID   string
	Changes    AffairFieldChanges
	NewSources []entities.Source
	Reasoning  string
	Details    map[string]any
}

// Store defines the persistent storage interface for figures, affairs,
// reviews and the audit log. Implementations must make the multi-row
// operations (MergeAffairs, ApplyEnrichment, UpdateFigureStatuses,
// ApplyReview) all-or-nothing.
type Store interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error

	// Figure operations

	// SaveFigure saves or updates a figure with its mandates and party roles.
	SaveFigure(ctx context.Context, figure *entities.Figure) error

	// FindFigureByID finds a figure by ID, nil if absent.
	FindFigureByID(ctx context.Context, figureID string) (*entities.Figure, error)

	// ListFigures lists figures with pagination, ordered by name.
	ListFigures(ctx context.Context, limit, offset int) ([]*entities.Figure, error)

	// CountFigures returns the total number of figures.
	CountFigures(ctx context.Context) (int, error)

	// UpdateFigureStatuses sets the publication status for all given figures
	// in one transaction.
	UpdateFigureStatuses(ctx context.Context, figureIDs []string, status entities.FigureStatus) error

	// UpdateProminenceScores writes recomputed scores in one transaction.
	UpdateProminenceScores(ctx context.Context, scores map[string]int) error

	// Party operations

	// SaveParty saves or updates a party.
	SaveParty(ctx context.Context, party *entities.Party) error

	// ListParties lists all parties.
	ListParties(ctx context.Context) ([]*entities.Party, error)

	// Affair operations

	// SaveAffair saves or updates an affair with its sources.
	SaveAffair(ctx context.Context, affair *entities.Affair) error

	// FindAffairByID loads an affair with sources and reviews, nil if absent.
	FindAffairByID(ctx context.Context, affairID string) (*entities.Affair, error)

	// ListActiveAffairs returns draft and published affairs with their
	// sources, for duplicate detection. A limit of 0 means no limit.
	ListActiveAffairs(ctx context.Context, limit int) ([]*entities.Affair, error)

	// ListDraftAffairsWithoutPendingReview returns draft affairs that have no
	// pending moderation review, with sources loaded. Already-reviewed items
	// are excluded by the query, which is what makes re-runs idempotent.
	ListDraftAffairsWithoutPendingReview(ctx context.Context, limit int) ([]*entities.Affair, error)

	// ListSiblingAffairTitles returns titles of the figure's other affairs,
	// used as duplicate hints in the classification context.
	ListSiblingAffairTitles(ctx context.Context, figureID, excludeAffairID string) ([]string, error)

	// MergeAffairs folds the loser's sources and reviews into the winner and
	// deletes the loser, writing an audit entry, all in one transaction.
	MergeAffairs(ctx context.Context, winnerID, loserID string) error

	// Review operations

	// SaveReview persists a moderation review.
	SaveReview(ctx context.Context, review *entities.ModerationReview) error

	// FindReviewByID finds a review by ID, nil if absent.
	FindReviewByID(ctx context.Context, reviewID string) (*entities.ModerationReview, error)

	// PendingDuplicateReviewExists reports whether a pending duplicate review
	// already links the two affairs, in either orientation.
	PendingDuplicateReviewExists(ctx context.Context, affairID, duplicateOfID string) (bool, error)

	// ListPendingRejectReviews returns pending reviews recommending reject,
	// candidates for the enrichment fallback.
	ListPendingRejectReviews(ctx context.Context, limit int) ([]*entities.ModerationReview, error)

	// ApplyReview stamps the review applied and sets the affair's publication
	// status in one transaction.
	ApplyReview(ctx context.Context, reviewID string, status entities.AffairStatus) error

	// ApplyEnrichment performs the enrichment write described by the update
	// in one transaction.
	ApplyEnrichment(ctx context.Context, update EnrichmentUpdate) error

	// Audit log

	// LogAction appends an audit entry.
	LogAction(ctx context.Context, action, affairID, figureID string, details map[string]any) error

	// FindAuditLog returns audit entries for an affair, newest first.
	FindAuditLog(ctx context.Context, affairID string) ([]entities.AuditEntry, error)
}
