package entities

import "time"

// MentionKind distinguishes person mentions from organization mentions.
type MentionKind string

const (
	MentionPerson MentionKind = "person"
	MentionParty  MentionKind = "party"
)

// Mention is a detected textual reference to a figure or a party, attached
// to an external text unit (press article, claim, transcript).
type Mention struct {
	ID          string      `json:"id"`
	Kind        MentionKind `json:"kind"`
	EntityID    string      `json:"entity_id"`
	TextUnitID  string      `json:"text_unit_id,omitempty"`
	MatchedText string      `json:"matched_text"`
	CreatedAt   time.Time   `json:"created_at"`
}
