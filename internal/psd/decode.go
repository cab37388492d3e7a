// Package psd turns Photoshop documents into a layer manifest and rebuilds
// card art from the visible raster layers.
package psd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/oov/psd"
)

var ErrUnsupportedDocument = errors.New("unsupported photoshop document")

// MaxDimension bounds the canvas sides. Layer and mask rectangles may not
// cover more pixels than a MaxDimension square.
const MaxDimension = 8192

// Document is a decoded PSD reduced to what card reconstruction needs.
type Document struct {
	Width  int
	Height int
	Layers []*Node // bottom to top, as stored in the file
}

// Node is a raster layer or a group.
type Node struct {
	Name      string
	Bounds    image.Rectangle
	Opacity   uint8 // 0..255
	BlendMode string
	Visible   bool
	IsGroup   bool
	Clipping  bool        // clipped to the layer below
	Image     image.Image // nil for groups and empty layers
	Children  []*Node
}

// Decode reads a PSD or PSB stream. The flattened preview is skipped; the
// composite is rebuilt from layers instead.
//
// Pixel buffers are sized from the rectangles the file declares, so a first
// pass reads only the header and layer records and rejects oversized
// documents before any bitmap is allocated.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	outline, _, err := psd.Decode(bytes.NewReader(data), &psd.DecodeOptions{
		SkipLayerImage:  true,
		SkipMergedImage: true,
		ConfigLoaded:    checkCanvas,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}
	err = checkLayers(outline.Layer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}

	img, _, err := psd.Decode(bytes.NewReader(data), &psd.DecodeOptions{SkipMergedImage: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}

	rect := img.Config.Rect
	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty canvas", ErrUnsupportedDocument)
	}

	return &Document{
		Width:  rect.Dx(),
		Height: rect.Dy(),
		Layers: convertLayers(img.Layer),
	}, nil
}

func checkCanvas(cfg psd.Config) error {
	w, h := cfg.Rect.Dx(), cfg.Rect.Dy()
	if w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("canvas %dx%d is larger than %dx%d", w, h, MaxDimension, MaxDimension)
	}
	return nil
}

func checkLayers(layers []psd.Layer) error {
	for i := range layers {
		l := &layers[i]
		for _, r := range []image.Rectangle{l.Rect, l.Mask.Rect, l.Mask.RealRect} {
			if tooLarge(r) {
				return fmt.Errorf("layer %q declares a %dx%d bitmap", l.Name, r.Dx(), r.Dy())
			}
		}
		err := checkLayers(l.Layer)
		if err != nil {
			return err
		}
	}
	return nil
}

func tooLarge(r image.Rectangle) bool {
	w, h := int64(r.Dx()), int64(r.Dy())
	return w > 2*MaxDimension || h > 2*MaxDimension || w*h > MaxDimension*MaxDimension
}

func convertLayers(layers []psd.Layer) []*Node {
	nodes := make([]*Node, 0, len(layers))
	for i := range layers {
		l := &layers[i]

		name := l.UnicodeName
		if name == "" {
			name = l.Name
		}

		node := &Node{
			Name:      name,
			Bounds:    l.Rect,
			Opacity:   l.Opacity,
			BlendMode: blendModeName(string(l.BlendMode)),
			Visible:   l.Visible(),
			IsGroup:   l.Folder(),
			Clipping:  l.Clipping,
		}
		if node.IsGroup {
			node.Children = convertLayers(l.Layer)
		} else if l.HasImage() && l.Picker != nil {
			node.Image = l.Picker
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// blendModeName maps PSD blend keys to CSS style names.
func blendModeName(key string) string {
	switch key {
	case "norm":
		return "normal"
	case "pass":
		return "pass-through"
	case "mul ":
		return "multiply"
	case "scrn":
		return "screen"
	case "over":
		return "overlay"
	case "sLit":
		return "soft-light"
	case "hLit":
		return "hard-light"
	case "div ":
		return "color-dodge"
	case "idiv":
		return "color-burn"
	case "lite":
		return "lighten"
	case "dark":
		return "darken"
	case "diff":
		return "difference"
	case "lddg":
		return "linear-dodge"
	case "diss":
		return "dissolve"
	case "hue ":
		return "hue"
	case "sat ":
		return "saturation"
	case "colr":
		return "color"
	case "lum ":
		return "luminosity"
	case "":
		return "normal"
	}
	return key
}
