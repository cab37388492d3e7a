package model

import "time"

const (
	RenderQualityLow    = "low"
	RenderQualityMedium = "medium"
	RenderQualityHigh   = "high"
	RenderQualityUltra  = "ultra"
)

// ViewerPreferences drive the 3D card viewer on every device the user signs in to.
type ViewerPreferences struct {
	UserID        string    `db:"user_id" json:"-"`
	RenderQuality string    `db:"render_quality" json:"render_quality"`
	AutoRotate    bool      `db:"auto_rotate" json:"auto_rotate"`
	ShowEffects   bool      `db:"show_effects" json:"show_effects"`
	ReducedMotion bool      `db:"reduced_motion" json:"reduced_motion"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func DefaultViewerPreferences(userID string) *ViewerPreferences {
	return &ViewerPreferences{
		UserID:        userID,
		RenderQuality: RenderQualityMedium,
		AutoRotate:    true,
		ShowEffects:   true,
		UpdatedAt:     time.Now(),
	}
}
