package model

import (
	"database/sql/driver"
	"encoding/json"
)

const (
	EffectHolographic = "holographic"
	EffectFoil        = "foil"
	EffectChrome      = "chrome"
	EffectCrystal     = "crystal"
	EffectVintage     = "vintage"
	EffectPrismatic   = "prismatic"
	EffectGlow        = "glow"
	EffectGold        = "gold"
)

var EffectTypes = []string{
	EffectHolographic,
	EffectFoil,
	EffectChrome,
	EffectCrystal,
	EffectVintage,
	EffectPrismatic,
	EffectGlow,
	EffectGold,
}

var BlendModes = []string{
	"normal",
	"multiply",
	"screen",
	"overlay",
	"soft-light",
	"hard-light",
	"color-dodge",
	"lighten",
}

const MaxEffectLayers = 8

// Effect is one visual layer applied by the 3D viewer. Slider values are 0..100.
type Effect struct {
	Type      string `json:"type"`
	Intensity int    `json:"intensity"`
	Sharpness int    `json:"sharpness"`
	Hue       int    `json:"hue"`
	BlendMode string `json:"blend_mode"`
	Enabled   bool   `json:"enabled"`
}

// Effects is the ordered effect stack of a card, stored as JSON.
type Effects []Effect

func (e Effects) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Effect(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *Effects) Scan(src any) error {
	return scanJSON(src, e)
}

// EffectPreset is a named, ready-made effect stack.
type EffectPreset struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Effects Effects `json:"effects"`
}
