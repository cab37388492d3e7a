package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/cardshow/cardshow/internal/markdown"
	"github.com/cardshow/cardshow/internal/model"
)

// cardDefinition is the frontmatter of a card file. The markdown body
// becomes the description.
type cardDefinition struct {
	Title       string           `json:"title"`
	Rarity      string           `json:"rarity"`
	Tags        []string         `json:"tags"`
	Visibility  string           `json:"visibility"`
	Image       string           `json:"image"`
	Thumbnail   string           `json:"thumbnail"`
	EditionSize int              `json:"edition_size"`
	Draft       *bool            `json:"draft"`
	Preset      string           `json:"preset"`
	Effects     model.Effects    `json:"effects"`
	Metadata    model.JSONObject `json:"metadata"`
}

// ImportResult reports the outcome for one card file.
type ImportResult struct {
	File   string `json:"file"`
	CardID string `json:"card_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CardImporter creates cards from markdown files with YAML frontmatter.
type CardImporter struct {
	cardService *CardService
	parser      *markdown.Parser
}

func NewCardImporter(cardService *CardService, parser *markdown.Parser) *CardImporter {
	return &CardImporter{cardService: cardService, parser: parser}
}

// ImportDir imports every *.md file under root in lexical order. A bad file
// is reported and skipped.
func (i *CardImporter) ImportDir(ctx context.Context, ownerID string, fsys fs.FS) ([]ImportResult, error) {
	var results []ImportResult

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".md") {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		res := ImportResult{File: p}
		card, err := i.ImportFile(ctx, ownerID, p, data)
		if err != nil {
			res.Error = err.Error()
			slog.Warn("card import failed", "file", p, "error", err)
		} else {
			res.CardID = card.ID
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to walk import dir: %w", err)
	}

	return results, nil
}

// ImportFile parses one card definition and stores it for ownerID.
func (i *CardImporter) ImportFile(ctx context.Context, ownerID, name string, data []byte) (*model.Card, error) {
	doc, err := i.parser.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	def, err := decodeDefinition(doc.Meta)
	if err != nil {
		return nil, invalid(err)
	}

	title := strings.TrimSpace(def.Title)
	if title == "" {
		title = titleFromFilename(name)
	}

	effects := def.Effects
	if def.Preset != "" {
		preset, ok := findPreset(def.Preset)
		if !ok {
			return nil, invalid(fmt.Errorf("unknown effect preset %q", def.Preset))
		}
		effects = append(append(model.Effects(nil), preset.Effects...), effects...)
	}

	meta := def.Metadata
	if meta == nil {
		meta = model.JSONObject{}
	}
	meta["import_file"] = path.Base(name)

	in := CardInput{
		Title:          title,
		Description:    strings.TrimSpace(doc.Body),
		ImageURL:       def.Image,
		ThumbnailURL:   def.Thumbnail,
		Rarity:         strings.ToLower(strings.TrimSpace(def.Rarity)),
		Tags:           def.Tags,
		DesignMetadata: meta,
		Effects:        effects,
		Visibility:     def.Visibility,
		IsDraft:        def.Draft,
		EditionSize:    def.EditionSize,
	}
	if in.ThumbnailURL == "" {
		in.ThumbnailURL = in.ImageURL
	}

	return i.cardService.createWithSource(ctx, ownerID, model.CardSourceImport, in)
}

// decodeDefinition moves the loosely typed YAML map into cardDefinition.
func decodeDefinition(meta map[string]any) (*cardDefinition, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("unsupported frontmatter: %w", err)
	}
	def := &cardDefinition{}
	err = json.Unmarshal(raw, def)
	if err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return def, nil
}

func findPreset(id string) (model.EffectPreset, bool) {
	for _, p := range EffectPresets {
		if p.ID == id {
			return p, true
		}
	}
	return model.EffectPreset{}, false
}
