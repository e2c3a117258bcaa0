package entities

import "time"

// MandateRole is the type of political office held, from a fixed enumeration.
type MandateRole string

const (
	RolePresident       MandateRole = "president"
	RoleMinister        MandateRole = "minister"
	RoleDeputy          MandateRole = "deputy"
	RoleSenator         MandateRole = "senator"
	RoleMEP             MandateRole = "mep"
	RolePartyLeader     MandateRole = "party_leader"
	RoleMayor           MandateRole = "mayor"
	RoleRegionalCouncil MandateRole = "regional_councillor"
	RoleLocalCouncil    MandateRole = "local_councillor"
)

// Mandate is a held political office with a date range.
type Mandate struct {
	ID      string      `json:"id"`
	Role    MandateRole `json:"role"`
	Current bool        `json:"current"`
	Start   *time.Time  `json:"start,omitempty"`
	End     *time.Time  `json:"end,omitempty"`
}

// PartyRoleHistory is a role held inside a political party.
// A nil End means the role is currently held.
type PartyRoleHistory struct {
	ID    string     `json:"id"`
	Role  string     `json:"role"`
	Party string     `json:"party,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Party represents a political organization that can be mentioned in text.
type Party struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	ShortName           string    `json:"short_name"`
	NormalizedName      string    `json:"normalized_name"`
	NormalizedShortName string    `json:"normalized_short_name"`
	CreatedAt           time.Time `json:"created_at"`
}
