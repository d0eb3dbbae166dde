// Package ai drafts product descriptions with Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("model returned no text")

// ListingInput is what the seller has filled in so far.
type ListingInput struct {
	Name        string   `json:"name" binding:"required"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	SubCategory string   `json:"subCategory"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	Notes       string   `json:"notes"`
}

// ListingAssistant holds the Gemini client.
type ListingAssistant struct {
	Client *genai.Client
	Model  string
}

// NewListingAssistant initializes the Gemini client.
func NewListingAssistant(ctx context.Context, apiKey, model string) (*ListingAssistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &ListingAssistant{Client: client, Model: model}, nil
}

func (a *ListingAssistant) Close() error {
	return a.Client.Close()
}

// Describe returns a draft description and the tokens the call used.
func (a *ListingAssistant) Describe(ctx context.Context, in ListingInput) (string, int, error) {
	model := a.Client.GenerativeModel(a.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"You write product descriptions for an online marketplace. " +
				"Plain text, two short paragraphs, no markdown, no invented specifications.")},
	}

	res, err := model.GenerateContent(ctx, genai.Text(Prompt(in)))
	if err != nil {
		return "", 0, fmt.Errorf("error generating description: %w", err)
	}

	tokens := 0
	if res.UsageMetadata != nil {
		tokens = int(res.UsageMetadata.TotalTokenCount)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", tokens, ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", tokens, ErrEmptyResponse
	}
	return text, tokens, nil
}

// Prompt renders the listing facts the model is allowed to use.
func Prompt(in ListingInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", strings.TrimSpace(in.Name))
	line := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	line("Brand", in.Brand)
	line("Category", in.Category)
	line("Subcategory", in.SubCategory)
	line("Colors", strings.Join(in.Colors, ", "))
	line("Sizes", strings.Join(in.Sizes, ", "))
	line("Seller notes", in.Notes)
	b.WriteString("Write the description.")
	return b.String()
}
