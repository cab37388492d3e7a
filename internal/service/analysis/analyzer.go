// Package analysis suggests card metadata from artwork with a vision model.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/validation"
)

var (
	ErrAnalysisDisabled = errors.New("image analysis is not configured")
	ErrNoImage          = errors.New("an image url or image data is required")
	ErrBadResponse      = errors.New("image analysis returned an unreadable answer")
)

// Image is either a fetchable URL or inline bytes.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
}

type Analyzer interface {
	Analyze(ctx context.Context, img Image) (*model.CardAnalysis, error)
}

type disabled struct{}

func (disabled) Analyze(context.Context, Image) (*model.CardAnalysis, error) {
	return nil, ErrAnalysisDisabled
}

// Disabled returns an Analyzer that always fails with ErrAnalysisDisabled.
func Disabled() Analyzer {
	return disabled{}
}

var raritySynonyms = map[string]string{
	"basic":       model.RarityCommon,
	"normal":      model.RarityCommon,
	"ordinary":    model.RarityCommon,
	"unusual":     model.RarityUncommon,
	"scarce":      model.RarityRare,
	"super rare":  model.RarityEpic,
	"very rare":   model.RarityEpic,
	"ultra rare":  model.RarityEpic,
	"legend":      model.RarityLegendary,
	"secret rare": model.RarityLegendary,
	"mythical":    model.RarityMythic,
	"myth":        model.RarityMythic,
}

// NormalizeRarity maps free-form model output onto the card rarity set.
// Anything unrecognised is common.
func NormalizeRarity(r string) string {
	r = strings.ToLower(strings.TrimSpace(r))
	r = strings.ReplaceAll(strings.ReplaceAll(r, "-", " "), "_", " ")
	if model.RarityRank(r) >= 0 {
		return r
	}
	if mapped, ok := raritySynonyms[r]; ok {
		return mapped
	}
	return model.RarityCommon
}

// parseAnalysis decodes the model's JSON answer and cleans every field.
func parseAnalysis(content string) (*model.CardAnalysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Rarity      string          `json:"rarity"`
		Tags        []string        `json:"tags"`
		Category    string          `json:"category"`
		Confidence  json.RawMessage `json:"confidence"`
	}
	err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	out := &model.CardAnalysis{
		Title:       truncate(strings.TrimSpace(raw.Title), validation.MaxTitleLength),
		Description: truncate(strings.TrimSpace(raw.Description), validation.MaxDescriptionLength),
		Rarity:      NormalizeRarity(raw.Rarity),
		Tags:        validation.NormalizeTags(raw.Tags, validation.MaxTags),
		Category:    strings.ToLower(strings.TrimSpace(raw.Category)),
		Confidence:  parseConfidence(raw.Confidence),
	}
	if out.Title == "" {
		out.Title = "Untitled card"
	}
	return out, nil
}

// parseConfidence accepts 0..1, percentages and numeric strings.
func parseConfidence(raw json.RawMessage) float64 {
	var v float64
	if json.Unmarshal(raw, &v) != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
			return 0
		}
	}
	if v > 1 {
		v /= 100
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
