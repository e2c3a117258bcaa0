package entities

import "time"

// AffairStatus is the publication status of an allegation record.
type AffairStatus string

const (
	AffairDraft     AffairStatus = "draft"
	AffairPublished AffairStatus = "published"
	AffairRejected  AffairStatus = "rejected"
	AffairArchived  AffairStatus = "archived"
	AffairExcluded  AffairStatus = "excluded"
)

// JudicialStatus is the stage of the judicial procedure, when known.
type JudicialStatus string

const (
	JudicialAllegation    JudicialStatus = "allegation"
	JudicialInvestigation JudicialStatus = "investigation"
	JudicialIndicted      JudicialStatus = "indicted"
	JudicialOnTrial       JudicialStatus = "on_trial"
	JudicialConvicted     JudicialStatus = "convicted"
	JudicialAcquitted     JudicialStatus = "acquitted"
	JudicialDismissed     JudicialStatus = "dismissed"
)

// Involvement describes the figure's role in the affair.
type Involvement string

const (
	InvolvementAccused Involvement = "accused"
	InvolvementWitness Involvement = "witness"
	InvolvementVictim  Involvement = "victim"
	InvolvementRelated Involvement = "related"
)

// Affair is a recorded allegation or judicial-procedure entry linked to a
// figure. Sources keep their insertion order (Position).
type Affair struct {
	ID                string             `json:"id"`
	FigureID          string             `json:"figure_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	JudicialStatus    JudicialStatus     `json:"judicial_status"`
	OffenseCategory   string             `json:"offense_category"`
	Involvement       Involvement        `json:"involvement"`
	PublicationStatus AffairStatus       `json:"publication_status"`
	SentenceDetail    string             `json:"sentence_detail,omitempty"`
	CourtName         string             `json:"court_name,omitempty"`
	FactsDate         *time.Time         `json:"facts_date,omitempty"`
	DecisionDate      *time.Time         `json:"decision_date,omitempty"`
	Sources           []Source           `json:"sources,omitempty"`
	Reviews           []ModerationReview `json:"reviews,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// SourceURLSet returns the set of normalized source URLs.
func (a *Affair) SourceURLSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Sources))
	for _, s := range a.Sources {
		set[NormalizeURL(s.URL)] = struct{}{}
	}
	return set
}

// HasSourceURL reports whether the affair already links the given URL.
func (a *Affair) HasSourceURL(url string) bool {
	norm := NormalizeURL(url)
	for _, s := range a.Sources {
		if NormalizeURL(s.URL) == norm {
			return true
		}
	}
	return false
}

// SourceType categorizes where a source comes from.
type SourceType string

const (
	SourcePress    SourceType = "press"
	SourceOfficial SourceType = "official"
	SourceCourt    SourceType = "court"
	SourceOther    SourceType = "other"
)

// Source is one reference backing an affair.
type Source struct {
	ID        string     `json:"id"`
	AffairID  string     `json:"affair_id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Publisher string     `json:"publisher,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	Type      SourceType `json:"type"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
}
