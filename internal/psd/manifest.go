package psd

import (
	"fmt"
	"image"
	"math"
	"strings"
	"unicode"

	"github.com/cardshow/cardshow/internal/model"
)

// Entry pairs a manifest row with the node it describes.
type Entry struct {
	Layer model.PSDLayer
	Node  *Node
	// Alpha is the layer opacity multiplied by every enclosing group's opacity.
	Alpha uint8
}

// Flatten walks the layer tree depth-first in document order and returns one
// entry per node. Layer ids are stable for a given file: layer-<n> by walk order.
func Flatten(doc *Document) []Entry {
	var entries []Entry
	canvas := image.Rect(0, 0, doc.Width, doc.Height)

	var walk func(nodes []*Node, parent string, depth int, visible bool, alpha float64)
	walk = func(nodes []*Node, parent string, depth int, visible bool, alpha float64) {
		for _, n := range nodes {
			path := n.Name
			if parent != "" {
				path = parent + "/" + n.Name
			}
			effectiveVisible := visible && n.Visible
			effectiveAlpha := alpha * float64(n.Opacity) / 255

			entry := Entry{
				Layer: model.PSDLayer{
					ID:        fmt.Sprintf("layer-%d", len(entries)+1),
					Name:      n.Name,
					Path:      path,
					Bounds:    toBounds(n.Bounds),
					Opacity:   int(math.Round(float64(n.Opacity) * 100 / 255)),
					BlendMode: n.BlendMode,
					Visible:   effectiveVisible,
					IsGroup:   n.IsGroup,
					Clipped:   n.Clipping,
					Depth:     depth,
				},
				Node:  n,
				Alpha: uint8(math.Round(effectiveAlpha * 255)),
			}
			entries = append(entries, entry)

			if n.IsGroup {
				walk(n.Children, path, depth+1, effectiveVisible, effectiveAlpha)
			}
		}
	}
	walk(doc.Layers, "", 0, true, 1)

	// roles need the full raster order to spot the bottom layer
	rasterIndex := 0
	for i := range entries {
		if entries[i].Layer.IsGroup {
			entries[i].Layer.Role = ClassifyRole(entries[i].Layer.Path, entries[i].Node.Bounds, canvas, -1)
			continue
		}
		entries[i].Layer.Role = ClassifyRole(entries[i].Layer.Path, entries[i].Node.Bounds, canvas, rasterIndex)
		rasterIndex++
	}

	return entries
}

func toBounds(r image.Rectangle) model.Bounds {
	return model.Bounds{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

var roleKeywords = []struct {
	role  string
	words []string
}{
	{model.LayerRoleBackground, []string{"background", "bg", "backdrop", "sky", "scenery", "landscape"}},
	{model.LayerRoleFrame, []string{"frame", "template", "card"}},
	{model.LayerRoleBorder, []string{"border", "edge", "outline", "trim", "corner"}},
	{model.LayerRoleText, []string{"text", "title", "name", "label", "caption", "stats", "font", "type", "flavor"}},
	{model.LayerRoleEffect, []string{"fx", "effect", "glow", "shine", "sparkle", "holo", "foil", "light", "shadow", "overlay", "gradient"}},
	{model.LayerRoleCharacter, []string{"character", "char", "hero", "portrait", "figure", "creature", "monster", "subject", "player", "art", "illustration"}},
}

// ClassifyRole guesses what a layer contributes to a card from its path and
// placement. rasterIndex is the layer's position among raster layers from
// the bottom, or -1 for groups.
func ClassifyRole(path string, bounds, canvas image.Rectangle, rasterIndex int) string {
	words := nameWords(path)
	// the layer's own name wins over its group names
	for i := len(words) - 1; i >= 0; i-- {
		for _, rk := range roleKeywords {
			for _, kw := range rk.words {
				if words[i] == kw || (len(kw) > 3 && strings.HasPrefix(words[i], kw)) {
					return rk.role
				}
			}
		}
	}

	if rasterIndex < 0 || canvas.Empty() || bounds.Empty() {
		return model.LayerRoleOther
	}

	coverage := float64(area(bounds.Intersect(canvas))) / float64(area(canvas))
	switch {
	case coverage >= 0.9 && rasterIndex == 0:
		return model.LayerRoleBackground
	case coverage >= 0.9:
		return model.LayerRoleFrame
	case isStrip(bounds, canvas):
		return model.LayerRoleText
	case coverage >= 0.1 && centered(bounds, canvas):
		return model.LayerRoleCharacter
	}
	return model.LayerRoleOther
}

// nameWords splits every path segment into lower-case words.
func nameWords(path string) []string {
	return strings.FieldsFunc(strings.ToLower(path), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// isStrip reports a short, wide layer in the top or bottom fifth of the card.
func isStrip(b, canvas image.Rectangle) bool {
	if b.Dy()*5 > canvas.Dy() || b.Dx()*2 < canvas.Dx() {
		return false
	}
	top := canvas.Min.Y + canvas.Dy()/5
	bottom := canvas.Max.Y - canvas.Dy()/5
	return b.Max.Y <= top || b.Min.Y >= bottom
}

func centered(b, canvas image.Rectangle) bool {
	cx := (b.Min.X + b.Max.X) / 2
	cy := (b.Min.Y + b.Max.Y) / 2
	return cx > canvas.Min.X+canvas.Dx()/3 && cx < canvas.Max.X-canvas.Dx()/3 &&
		cy > canvas.Min.Y+canvas.Dy()/4 && cy < canvas.Max.Y-canvas.Dy()/4
}
