package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cardshow/cardshow/internal/model"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxTags              = 20
	MaxEditionSize       = 10000
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrTooManyLayers = fmt.Errorf("at most %d effect layers are allowed", model.MaxEffectLayers)
)

func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return fmt.Errorf("title is too long (max %d characters)", MaxTitleLength)
	}
	return nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description is too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

func ValidateRarity(rarity string) error {
	if !slices.Contains(model.Rarities, rarity) {
		return fmt.Errorf("invalid rarity %q", rarity)
	}
	return nil
}

func ValidateVisibility(visibility string) error {
	switch visibility {
	case model.VisibilityPrivate, model.VisibilityPublic, model.VisibilityShared:
		return nil
	}
	return fmt.Errorf("invalid visibility %q", visibility)
}

func ValidateEditionSize(n int) error {
	if n < 1 || n > MaxEditionSize {
		return fmt.Errorf("edition size must be between 1 and %d", MaxEditionSize)
	}
	return nil
}

// NormalizeEffects validates the effect stack and clamps slider values to 0..100.
// An empty blend mode defaults to normal.
func NormalizeEffects(effects model.Effects) (model.Effects, error) {
	if len(effects) > model.MaxEffectLayers {
		return nil, ErrTooManyLayers
	}

	out := make(model.Effects, 0, len(effects))
	for i, e := range effects {
		if !slices.Contains(model.EffectTypes, e.Type) {
			return nil, fmt.Errorf("effect %d: unknown type %q", i, e.Type)
		}
		if e.BlendMode == "" {
			e.BlendMode = "normal"
		}
		if !slices.Contains(model.BlendModes, e.BlendMode) {
			return nil, fmt.Errorf("effect %d: unknown blend mode %q", i, e.BlendMode)
		}
		e.Intensity = clampSlider(e.Intensity)
		e.Sharpness = clampSlider(e.Sharpness)
		e.Hue = clampSlider(e.Hue)
		out = append(out, e)
	}
	return out, nil
}

func clampSlider(v int) int {
	return min(max(v, 0), 100)
}
