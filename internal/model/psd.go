package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

const (
	LayerRoleBackground = "background"
	LayerRoleCharacter  = "character"
	LayerRoleFrame      = "frame"
	LayerRoleText       = "text"
	LayerRoleEffect     = "effect"
	LayerRoleBorder     = "border"
	LayerRoleOther      = "other"
)

type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PSDLayer is one entry of the flattened layer manifest of an imported document.
type PSDLayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Bounds    Bounds `json:"bounds"`
	Opacity   int    `json:"opacity"`
	BlendMode string `json:"blend_mode"`
	Visible   bool   `json:"visible"`
	IsGroup   bool   `json:"is_group"`
	Clipped   bool   `json:"clipped,omitempty"`
	Depth     int    `json:"depth"`
	Role      string `json:"role"`
	ImageURL  string `json:"image_url,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

type PSDLayers []PSDLayer

func (l PSDLayers) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]PSDLayer(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *PSDLayers) Scan(src any) error {
	return scanJSON(src, l)
}

type PSDImport struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Filename      string    `db:"filename" json:"filename"`
	SourcePath    string    `db:"source_path" json:"-"`
	Width         int       `db:"width" json:"width"`
	Height        int       `db:"height" json:"height"`
	LayerCount    int       `db:"layer_count" json:"layer_count"`
	Layers        PSDLayers `db:"layers" json:"layers"`
	CompositePath string    `db:"composite_path" json:"-"`
	CompositeURL  string    `db:"composite_url" json:"composite_url"`
	CardID        *string   `db:"card_id" json:"card_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
