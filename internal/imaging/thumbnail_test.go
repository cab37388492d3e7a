package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleKeepsAspectRatio(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 640, 900))
	for y := 0; y < 900; y++ {
		for x := 0; x < 640; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 10, 10, 255})
		}
	}

	out := Scale(src, 320)

	assert.Equal(t, image.Rect(0, 0, 320, 450), out.Bounds())
	assert.Equal(t, color.NRGBA{200, 10, 10, 255}, out.At(100, 100))
}

func TestScaleLeavesSmallImages(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 140))
	assert.Same(t, src, Scale(src, 320))
}

func TestThumbnailEncodesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 800, 1120))))

	thumb, err := Thumbnail(&buf, ThumbnailWidth)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 448, cfg.Height)
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	_, err := Thumbnail(bytes.NewReader([]byte("nope")), ThumbnailWidth)
	assert.Error(t, err)
}
