package entities

import "time"

// FigureStatus is the publication status of a public figure's page.
type FigureStatus string

const (
	FigureDraft     FigureStatus = "draft"
	FigurePublished FigureStatus = "published"
	FigureArchived  FigureStatus = "archived"
	FigureExcluded  FigureStatus = "excluded"
)

// ActivityCounts holds pre-aggregated activity numbers for a figure.
// Aggregation happens upstream; the scorer only consumes counts.
type ActivityCounts struct {
	Votes               int `json:"votes"`
	MediaMentions       int `json:"media_mentions"`
	FactCheckMentions   int `json:"fact_check_mentions"`
	RecentMediaMentions int `json:"recent_media_mentions"`
	AffairCount         int `json:"affair_count"`
}

// Figure represents a tracked public figure (politician, official, candidate).
// Prominence and publication status are derived values, recomputed by the
// scoring and status services from the rest of the struct.
type Figure struct {
	ID                 string             `json:"id"`
	FullName           string             `json:"full_name"`
	LastName           string             `json:"last_name"`
	NormalizedFullName string             `json:"normalized_full_name"`
	NormalizedLastName string             `json:"normalized_last_name"`
	BirthDate          *time.Time         `json:"birth_date,omitempty"`
	DeathDate          *time.Time         `json:"death_date,omitempty"`
	Mandates           []Mandate          `json:"mandates,omitempty"`
	PartyRoles         []PartyRoleHistory `json:"party_roles,omitempty"`
	Activity           ActivityCounts     `json:"activity"`
	ProminenceScore    int                `json:"prominence_score"`
	PublicationStatus  FigureStatus       `json:"publication_status"`
	StatusOverride     bool               `json:"status_override"`
	HasPhoto           bool               `json:"has_photo"`
	HasBio             bool               `json:"has_bio"`
	CreatedAt          time.Time          `json:"created_at"`
}

// HasCurrentMandate reports whether the figure currently holds any mandate.
func (f *Figure) HasCurrentMandate() bool {
	for _, m := range f.Mandates {
		if m.Current {
			return true
		}
	}
	return false
}

// HasActivePartyRole reports whether the figure currently holds a party role.
func (f *Figure) HasActivePartyRole() bool {
	for _, r := range f.PartyRoles {
		if r.End == nil {
			return true
		}
	}
	return false
}
