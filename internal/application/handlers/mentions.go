package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// MentionsHandler scans free text for references to known figures and
// parties.
type MentionsHandler struct {
	store ports.Store
}

// NewMentionsHandler creates a new mentions handler.
func NewMentionsHandler(store ports.Store) *MentionsHandler {
	return &MentionsHandler{store: store}
}

// FigureMention is one detected figure reference.
type FigureMention struct {
	FigureID    string
	Name        string
	MatchedText string
}

// PartyMention is one detected party reference.
type PartyMention struct {
	PartyID     string
	Name        string
	MatchedText string
}

// MentionsResult holds all references found in one text.
type MentionsResult struct {
	Figures []FigureMention
	Parties []PartyMention
}

// HandleFile scans a text file for mentions.
func (h *MentionsHandler) HandleFile(ctx context.Context, filePath string) (*MentionsResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return h.Handle(ctx, string(data))
}

// Handle scans the given text for figure and party mentions, building the
// candidate indexes from the store.
func (h *MentionsHandler) Handle(ctx context.Context, text string) (*MentionsResult, error) {
	figures, err := h.store.ListFigures(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", err)
	}
	parties, err := h.store.ListParties(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing parties: %w", err)
	}

	figureIndex, figureNames := figureCandidates(figures)
	partyIndex, partyNames := partyCandidates(parties)

	result := &MentionsResult{}
	for _, match := range services.FindMentions(text, figureIndex) {
		result.Figures = append(result.Figures, FigureMention{
			FigureID:    match.ID,
			Name:        figureNames[match.ID],
			MatchedText: match.MatchedText,
		})
	}
	for _, match := range services.FindPartyMentions(text, partyIndex) {
		result.Parties = append(result.Parties, PartyMention{
			PartyID:     match.ID,
			Name:        partyNames[match.ID],
			MatchedText: match.MatchedText,
		})
	}
	return result, nil
}

func figureCandidates(figures []*entities.Figure) ([]services.MentionCandidate, map[string]string) {
	index := make([]services.MentionCandidate, 0, len(figures))
	names := make(map[string]string, len(figures))
	for _, f := range figures {
		index = append(index, services.MentionCandidate{
			ID:        f.ID,
			FullName:  f.NormalizedFullName,
			ShortName: f.NormalizedLastName,
		})
		names[f.ID] = f.FullName
	}
	return index, names
}

func partyCandidates(parties []*entities.Party) ([]services.MentionCandidate, map[string]string) {
	index := make([]services.MentionCandidate, 0, len(parties))
	names := make(map[string]string, len(parties))
	for _, p := range parties {
		index = append(index, services.MentionCandidate{
			ID:        p.ID,
			FullName:  p.NormalizedName,
			ShortName: p.NormalizedShortName,
		})
		names[p.ID] = p.Name
	}
	return index, names
}
