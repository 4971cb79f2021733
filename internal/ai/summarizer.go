package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tvcompare/pkg/models"
)

// ErrUnavailable means no model is configured.
var ErrUnavailable = errors.New("ai summary unavailable")

type Comparison struct {
	Summary string `json:"summary"`
	Verdict string `json:"verdict"`
}

// Generator produces a JSON answer for a prompt under a system instruction.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Summarizer struct {
	gen      Generator
	language string
	log      *zap.Logger
}

func NewSummarizer(gen Generator, language string, log *zap.Logger) *Summarizer {
	if language == "" {
		language = "Arabic"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Summarizer{gen: gen, language: language, log: log.Named("ai")}
}

func SystemInstruction(language string) string {
	return fmt.Sprintf(`You are an expert consumer electronics consultant specializing in TVs.
You answer in %s.
Compare the provided TV models based on their specifications.
Give a concise summary of the key differences, pros and cons.
Finish with a clear verdict on which TV is better for gaming, for movies and on a budget.
Output JSON only.`, language)
}

type promptSpec struct {
	Label string           `json:"label"`
	Value models.SpecValue `json:"value"`
	Unit  string           `json:"unit,omitempty"`
}

type promptItem struct {
	Name  string       `json:"name"`
	Brand string       `json:"brand"`
	Specs []promptSpec `json:"specs"`
}

// BuildPrompt lists every item with its defined values in field order.
func BuildPrompt(fields []models.Field, items []models.Item, language string) (string, error) {
	sorted := models.SortFields(fields)
	data := make([]promptItem, 0, len(items))
	for _, it := range items {
		pi := promptItem{Name: it.Name, Brand: it.Brand, Specs: []promptSpec{}}
		for _, f := range sorted {
			v, ok := it.Specs.Get(f.ID)
			if !ok {
				continue
			}
			pi.Specs = append(pi.Specs, promptSpec{Label: f.Label, Value: v, Unit: f.Unit})
		}
		data = append(data, pi)
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prompt data: %w", err)
	}

	return fmt.Sprintf(`Compare the following TV models:
%s

Return a JSON object with this structure:
{
  "summary": "Detailed comparison summary in %[2]s...",
  "verdict": "Verdict summary in %[2]s (best for X, Y, Z)..."
}`, b, language), nil
}

// Summarize asks the model to compare items. It needs at least two items.
func (s *Summarizer) Summarize(ctx context.Context, fields []models.Field, items []models.Item) (*Comparison, error) {
	if s == nil || s.gen == nil {
		return nil, ErrUnavailable
	}
	if len(items) < 2 {
		return nil, fmt.Errorf("need at least 2 items, got %d", len(items))
	}

	prompt, err := BuildPrompt(fields, items, s.language)
	if err != nil {
		return nil, err
	}

	text, err := s.gen.Generate(ctx, SystemInstruction(s.language), prompt)
	if err != nil {
		s.log.Warn("generate comparison", zap.Error(err))
		return nil, fmt.Errorf("generate comparison: %w", err)
	}

	var out Comparison
	if err := json.Unmarshal([]byte(stripFence(text)), &out); err != nil {
		return nil, fmt.Errorf("decode model answer: %w", err)
	}
	return &out, nil
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
