package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/domain/services"
)

// FiguresHandler handles figure listing and creation.
type FiguresHandler struct {
	store ports.Store
}

// NewFiguresHandler creates a new figures handler.
func NewFiguresHandler(store ports.Store) *FiguresHandler {
	return &FiguresHandler{store: store}
}

// ListResult holds one page of figures with the total count.
type ListResult struct {
	Figures []*entities.Figure
	Total   int
}

// HandleList lists figures with pagination.
func (h *FiguresHandler) HandleList(ctx context.Context, limit, offset int) (*ListResult, error) {
	figures, err := h.store.ListFigures(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", err)
	}
	total, err := h.store.CountFigures(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting figures: %w", err)
	}
	return &ListResult{Figures: figures, Total: total}, nil
}

// AddFigureInput is the minimal input for creating a figure.
type AddFigureInput struct {
	FullName  string
	LastName  string
	BirthDate string
	DeathDate string
}

// HandleAdd creates a figure with normalized name fields filled in. It does
// not compute prominence or status; the batch passes own those.
func (h *FiguresHandler) HandleAdd(ctx context.Context, input AddFigureInput) (*entities.Figure, error) {
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("full name is required")
	}

	lastName := strings.TrimSpace(input.LastName)
	if lastName == "" {
		parts := strings.Fields(fullName)
		lastName = parts[len(parts)-1]
	}

	figure := &entities.Figure{
		ID:                 uuid.New().String(),
		FullName:           fullName,
		LastName:           lastName,
		NormalizedFullName: services.Normalize(fullName),
		NormalizedLastName: services.Normalize(lastName),
		PublicationStatus:  entities.FigureDraft,
		CreatedAt:          time.Now(),
	}

	if input.BirthDate != "" {
		t, err := time.Parse("2006-01-02", input.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("parsing birth date: %w", err)
		}
		figure.BirthDate = &t
	}
	if input.DeathDate != "" {
		t, err := time.Parse("2006-01-02", input.DeathDate)
		if err != nil {
			return nil, fmt.Errorf("parsing death date: %w", err)
		}
		figure.DeathDate = &t
	}

	if err := h.store.SaveFigure(ctx, figure); err != nil {
		return nil, fmt.Errorf("saving figure: %w", err)
	}
	return figure, nil
}
