package psd

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(r image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func cardDocument() *Document {
	canvas := image.Rect(0, 0, 100, 140)
	art := image.Rect(25, 40, 75, 100)
	title := image.Rect(10, 5, 90, 20)
	return &Document{
		Width:  100,
		Height: 140,
		Layers: []*Node{
			{Name: "Layer 0", Bounds: canvas, Opacity: 255, BlendMode: "normal", Visible: true, Image: solid(canvas, color.NRGBA{0, 0, 255, 255})},
			{Name: "Hero", Bounds: art, Opacity: 128, BlendMode: "normal", Visible: true, Image: solid(art, color.NRGBA{255, 0, 0, 255})},
			{Name: "Texts", IsGroup: true, Opacity: 255, Visible: false, BlendMode: "pass-through", Children: []*Node{
				{Name: "Card Name", Bounds: title, Opacity: 255, BlendMode: "normal", Visible: true, Image: solid(title, color.NRGBA{255, 255, 255, 255})},
			}},
		},
	}
}

func TestFlattenBuildsManifest(t *testing.T) {
	entries := Flatten(cardDocument())
	require.Len(t, entries, 4)

	bg := entries[0].Layer
	assert.Equal(t, "layer-1", bg.ID)
	assert.Equal(t, model.LayerRoleBackground, bg.Role)
	assert.Equal(t, 100, bg.Opacity)

	hero := entries[1].Layer
	assert.Equal(t, model.LayerRoleCharacter, hero.Role)
	assert.Equal(t, 50, hero.Opacity)
	assert.Equal(t, model.Bounds{X: 25, Y: 40, Width: 50, Height: 60}, hero.Bounds)

	group := entries[2].Layer
	assert.True(t, group.IsGroup)
	assert.Equal(t, 0, group.Depth)

	nested := entries[3].Layer
	assert.Equal(t, "Texts/Card Name", nested.Path)
	assert.Equal(t, 1, nested.Depth)
	assert.False(t, nested.Visible, "hidden group hides its children")
	assert.Equal(t, model.LayerRoleText, nested.Role)
}

func TestCompositeHonoursOpacityAndVisibility(t *testing.T) {
	doc := cardDocument()
	entries := Flatten(doc)

	img := Composite(doc.Width, doc.Height, entries, nil)

	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(5, 130))
	mixed := img.NRGBAAt(50, 70)
	assert.InDelta(t, 128, int(mixed.R), 2)
	assert.InDelta(t, 127, int(mixed.B), 2)
	// the title sits in a hidden group
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(50, 10))
}

func TestCompositeSubset(t *testing.T) {
	doc := cardDocument()
	entries := Flatten(doc)

	img := Composite(doc.Width, doc.Height, entries, func(id string) bool { return id == "layer-2" })

	assert.Equal(t, uint8(0), img.NRGBAAt(5, 130).A)
	assert.NotZero(t, img.NRGBAAt(50, 70).A)
}

func TestClassifyRoleByPlacement(t *testing.T) {
	canvas := image.Rect(0, 0, 100, 140)

	assert.Equal(t, model.LayerRoleFrame, ClassifyRole("Layer 7", canvas, canvas, 3))
	assert.Equal(t, model.LayerRoleText, ClassifyRole("Layer 8", image.Rect(5, 120, 95, 135), canvas, 4))
	assert.Equal(t, model.LayerRoleOther, ClassifyRole("Layer 9", image.Rect(0, 0, 5, 5), canvas, 5))
	assert.Equal(t, model.LayerRoleEffect, ClassifyRole("Holo Sparkles", image.Rect(0, 0, 5, 5), canvas, 6))
	assert.Equal(t, model.LayerRoleBorder, ClassifyRole("Gold Border", canvas, canvas, 0))
}

func TestDecodeRejectsNonPSD(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not a photoshop file")))
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestBlendModeName(t *testing.T) {
	assert.Equal(t, "multiply", blendModeName("mul "))
	assert.Equal(t, "normal", blendModeName("norm"))
	assert.Equal(t, "xxxx", blendModeName("xxxx"))
}

func openFixture(t *testing.T, name string) *bytes.Reader {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return bytes.NewReader(data)
}

// card.psd, bottom to top: Background, Hero (multiply, 50%), Hero Shine
// (screen, clipped), hidden group Texts holding Card Name, and a hidden
// Foil Sparkles layer with a unicode name.
func TestDecodeLayeredFixture(t *testing.T) {
	doc, err := Decode(openFixture(t, "card.psd"))
	require.NoError(t, err)
	assert.Equal(t, 60, doc.Width)
	assert.Equal(t, 84, doc.Height)

	entries := Flatten(doc)
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Layer.Path)
	}
	assert.Equal(t, []string{"Background", "Hero", "Hero Shine", "Texts", "Texts/Card Name", "Foil Sparkles ✦"}, paths)

	bg := entries[0].Layer
	assert.Equal(t, model.LayerRoleBackground, bg.Role)
	assert.Equal(t, model.Bounds{X: 0, Y: 0, Width: 60, Height: 84}, bg.Bounds)
	require.NotNil(t, entries[0].Node.Image)

	hero := entries[1].Layer
	assert.Equal(t, "multiply", hero.BlendMode)
	assert.Equal(t, 50, hero.Opacity)
	assert.Equal(t, model.Bounds{X: 15, Y: 20, Width: 30, Height: 40}, hero.Bounds)
	assert.False(t, hero.Clipped)

	shine := entries[2].Layer
	assert.Equal(t, "screen", shine.BlendMode)
	assert.True(t, shine.Clipped)
	assert.Equal(t, model.LayerRoleEffect, shine.Role)

	group := entries[3].Layer
	assert.True(t, group.IsGroup)
	assert.False(t, group.Visible)
	assert.Equal(t, "pass-through", group.BlendMode)

	title := entries[4].Layer
	assert.Equal(t, 1, title.Depth)
	assert.False(t, title.Visible, "hidden group hides its children")
	assert.Equal(t, model.LayerRoleText, title.Role)

	foil := entries[5].Layer
	assert.Equal(t, "linear-dodge", foil.BlendMode)
	assert.False(t, foil.Visible)
	assert.Equal(t, model.LayerRoleEffect, foil.Role)

	img := Composite(doc.Width, doc.Height, entries, nil)
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(2, 2))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(30, 7), "title layer is hidden")
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(10, 75), "foil layer is hidden")
}

func psdHeader(width, height uint32) []byte {
	var b bytes.Buffer
	b.WriteString("8BPS")
	_ = binary.Write(&b, binary.BigEndian, uint16(1))
	b.Write(make([]byte, 6))
	_ = binary.Write(&b, binary.BigEndian, uint16(3))
	_ = binary.Write(&b, binary.BigEndian, height)
	_ = binary.Write(&b, binary.BigEndian, width)
	_ = binary.Write(&b, binary.BigEndian, uint16(8))
	_ = binary.Write(&b, binary.BigEndian, uint16(3))
	b.Write(make([]byte, 12)) // color mode data, image resources, layer and mask info
	return b.Bytes()
}

func TestDecodeRejectsOversizedCanvas(t *testing.T) {
	_, err := Decode(bytes.NewReader(psdHeader(12000, 12000)))
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
	assert.Contains(t, err.Error(), "12000x12000")

	doc, err := Decode(bytes.NewReader(psdHeader(MaxDimension, 16)))
	require.NoError(t, err)
	assert.Empty(t, doc.Layers)
}

func TestDecodeRejectsOversizedLayer(t *testing.T) {
	_, err := Decode(openFixture(t, "oversized_layer.psd"))
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
	assert.Contains(t, err.Error(), "Giant")
}
