// Package openai provides a Classifier implementation using OpenAI.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
)

const classificationPrompt = `You are a moderation assistant for a public-interest tracker of judicial affairs involving public figures. Given one affair record, decide whether it is fit for publication.

Evaluate:
- Is the description substantive, or too thin to inform a reader?
- Is at least one credible source linked?
- Do the judicial status and offense category match the description?
- Could this be a duplicate of one of the sibling affair titles provided?

Return ONLY a valid JSON object, no other text:
{
  "recommendation": "publish" | "reject" | "needs_review",
  "confidence": 0-100,
  "reasoning": "one or two sentences",
  "corrections": {"title": "...", "description": "...", "judicial_status": "...", "offense_category": "...", "sentence_detail": "...", "court_name": "...", "facts_date": "YYYY-MM-DD", "decision_date": "YYYY-MM-DD"},
  "issues": [{"type": "missing_source" | "thin_description" | "unverifiable" | "duplicate_suspected" | "off_topic", "detail": "..."}]
}

Omit "corrections" fields you do not want to change. Omit "issues" when there are none. Recommend "needs_review" whenever you are unsure.`

const extractionPrompt = `You are a fact extractor for a tracker of judicial affairs involving public figures. Extract structured facts about the affair described in the hints from the given press article text.

Only extract facts the text actually states about this affair and this figure. Leave fields empty when the text does not cover them. Dates must be ISO format (YYYY-MM-DD).

Return ONLY a valid JSON object, no other text:
{
  "title": "short factual title",
  "description": "two to four sentence factual summary",
  "judicial_status": "allegation" | "investigation" | "indicted" | "on_trial" | "convicted" | "acquitted" | "dismissed",
  "offense_category": "short category",
  "sentence_detail": "sentence handed down, if any",
  "court_name": "court involved, if named",
  "facts_date": "YYYY-MM-DD",
  "decision_date": "YYYY-MM-DD",
  "confidence": 0-100,
  "reasoning": "one sentence on how well the text covers the affair"
}`

// Client implements the Classifier interface using OpenAI.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI classifier client.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	client := openai.NewClient(cfg.APIKey)

	model := "gpt-4o-mini"
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// ClassifyAffair produces a publication recommendation for the affair.
func (c *Client) ClassifyAffair(ctx context.Context, affairCtx ports.AffairContext) (*ports.Classification, error) {
	payload, err := json.MarshalIndent(affairCtx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling affair context: %w", err)
	}

	content, err := c.complete(ctx, classificationPrompt, string(payload))
	if err != nil {
		return nil, err
	}

	var raw struct {
		Recommendation string                      `json:"recommendation"`
		Confidence     int                         `json:"confidence"`
		Reasoning      string                      `json:"reasoning"`
		Corrections    *entities.AffairCorrections `json:"corrections"`
		Issues         []rawIssue                  `json:"issues"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parsing classification JSON: %w (response: %s)", err, content)
	}

	recommendation, err := parseRecommendation(raw.Recommendation)
	if err != nil {
		return nil, err
	}

	classification := &ports.Classification{
		Recommendation: recommendation,
		Confidence:     raw.Confidence,
		Reasoning:      raw.Reasoning,
		Corrections:    raw.Corrections,
	}
	for _, issue := range raw.Issues {
		issueType, ok := parseIssueType(issue.Type)
		if !ok {
			// Unknown issue types from the model are dropped, not fatal.
			continue
		}
		classification.Issues = append(classification.Issues, entities.ReviewIssue{
			Type:   issueType,
			Detail: issue.Detail,
		})
	}
	return classification, nil
}

// ExtractAffair structures affair facts out of scraped page text.
func (c *Client) ExtractAffair(ctx context.Context, text string, hints ports.ExtractionHints) (*ports.ExtractedAffair, error) {
	input := fmt.Sprintf("Figure: %s\nAffair: %s\n\nArticle text:\n%s", hints.FigureName, hints.Title, text)

	content, err := c.complete(ctx, extractionPrompt, input)
	if err != nil {
		return nil, err
	}

	var extracted ports.ExtractedAffair
	if err := json.Unmarshal([]byte(content), &extracted); err != nil {
		return nil, fmt.Errorf("parsing extraction JSON: %w (response: %s)", err, content)
	}
	return &extracted, nil
}

// complete runs one chat completion and returns the cleaned response body.
func (c *Client) complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userContent,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", ports.ErrRateLimited
		}
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return cleanJSONResponse(resp.Choices[0].Message.Content), nil
}

type rawIssue struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func parseRecommendation(s string) (entities.Recommendation, error) {
	switch entities.Recommendation(strings.ToLower(strings.TrimSpace(s))) {
	case entities.RecommendPublish:
		return entities.RecommendPublish, nil
	case entities.RecommendReject:
		return entities.RecommendReject, nil
	case entities.RecommendNeedsReview:
		return entities.RecommendNeedsReview, nil
	default:
		return "", fmt.Errorf("unknown recommendation: %q", s)
	}
}

func parseIssueType(s string) (entities.IssueType, bool) {
	switch entities.IssueType(strings.ToLower(strings.TrimSpace(s))) {
	case entities.IssueMissingSource:
		return entities.IssueMissingSource, true
	case entities.IssueThinDescription:
		return entities.IssueThinDescription, true
	case entities.IssueUnverifiable:
		return entities.IssueUnverifiable, true
	case entities.IssueDuplicateSuspected:
		return entities.IssueDuplicateSuspected, true
	case entities.IssueOffTopic:
		return entities.IssueOffTopic, true
	default:
		return "", false
	}
}

// cleanJSONResponse removes markdown code fences from the response.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(content, "```")

	return strings.TrimSpace(content)
}
