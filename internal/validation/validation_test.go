package validation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "epic-dragon", NormalizeTag("  Épic Dragon! "))
	assert.Equal(t, "holo", NormalizeTag("#HOLO"))
	assert.Equal(t, "", NormalizeTag("!!!"))
}

func TestNormalizeTagsDeduplicates(t *testing.T) {
	assert.Equal(t, []string{"fire", "dragon"}, NormalizeTags([]string{"Fire", "fire ", "", "Dragon"}, 0))
	assert.Equal(t, []string{"a"}, NormalizeTags([]string{"a", "b"}, 1))
}

func TestNormalizeEffectsClampsAndDefaults(t *testing.T) {
	effects, err := NormalizeEffects(model.Effects{
		{Type: model.EffectHolographic, Intensity: 140, Sharpness: -5},
		{Type: model.EffectGold, Intensity: 30, BlendMode: "screen"},
	})
	require.NoError(t, err)

	assert.Equal(t, 100, effects[0].Intensity)
	assert.Equal(t, 0, effects[0].Sharpness)
	assert.Equal(t, "normal", effects[0].BlendMode)
	assert.Equal(t, "screen", effects[1].BlendMode)
}

func TestNormalizeEffectsRejects(t *testing.T) {
	_, err := NormalizeEffects(model.Effects{{Type: "sparkle"}})
	assert.Error(t, err)

	_, err = NormalizeEffects(model.Effects{{Type: model.EffectFoil, BlendMode: "dissolve"}})
	assert.Error(t, err)

	tooMany := make(model.Effects, model.MaxEffectLayers+1)
	for i := range tooMany {
		tooMany[i] = model.Effect{Type: model.EffectGlow}
	}
	_, err = NormalizeEffects(tooMany)
	assert.ErrorIs(t, err, ErrTooManyLayers)
}

func TestValidateReaderDetectsPSD(t *testing.T) {
	head := append([]byte("8BPS\x00\x01"), make([]byte, 64)...)

	detected, err := ValidateReader(bytes.NewReader(head), "poster.psd", int64(len(head)), PSDConstraints)
	require.NoError(t, err)
	assert.Equal(t, "image/vnd.adobe.photoshop", detected)

	_, err = ValidateReader(bytes.NewReader(head), "poster.png", int64(len(head)), ImageConstraints)
	assert.Error(t, err)
}

func TestValidateReaderRewinds(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	r := bytes.NewReader(png)

	detected, err := ValidateReader(r, "card.png", int64(len(png)), ImageConstraints)
	require.NoError(t, err)
	assert.Equal(t, "image/png", detected)
	assert.Equal(t, int64(len(png)), int64(r.Len()))
}

func TestValidateTitleAndRarity(t *testing.T) {
	assert.ErrorIs(t, ValidateTitle("   "), ErrTitleRequired)
	assert.NoError(t, ValidateTitle("Ember Drake"))
	assert.NoError(t, ValidateRarity(model.RarityMythic))
	assert.Error(t, ValidateRarity("ultra-rare"))
	assert.Error(t, ValidateEditionSize(0))
}

func TestValidatePasswordRules(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x7", 40)), ErrPasswordTooLong)
	assert.ErrorIs(t, ValidatePassword("my-cardshow-login-99"), ErrPasswordWeak)
	assert.ErrorIs(t, ValidatePassword("abababababab"), ErrPasswordWeak)
	assert.NoError(t, ValidatePassword("violet-lantern-harbor-7"))
	// multi-byte runes count as one character each
	assert.NoError(t, ValidatePassword("дракон-море-ветер"))
}

func TestValidateEmail(t *testing.T) {
	assert.ErrorIs(t, ValidateEmail(""), ErrEmailRequired)
	assert.ErrorIs(t, ValidateEmail("Ada <ada@example.com>"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail("ada@localhost"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail("not-an-address"), ErrEmailInvalid)
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
	assert.NoError(t, ValidateEmail("ada+cards@example.com"))
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{"plain", "Ember Forge", nil},
		{"unicode", "Zoë ✦", nil},
		{"blank", "   ", ErrDisplayNameRequired},
		{"punctuation only", "!!!", ErrDisplayNameInvalid},
		{"control character", "Ada\x00", ErrDisplayNameInvalid},
		{"reserved", "  Cardshow   Team ", ErrDisplayNameReserved},
		{"reserved short", "Admin", ErrDisplayNameReserved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.in)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.Error(t, ValidateDisplayName("A"))
	assert.Error(t, ValidateDisplayName(strings.Repeat("é", MaxDisplayNameLength+1)))
}
