package model

import (
	"time"
)

type Collection struct {
	ID            string    `db:"id" json:"id"`
	OwnerID       string    `db:"owner_id" json:"owner_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Visibility    string    `db:"visibility" json:"visibility"`
	CoverImageURL string    `db:"cover_image_url" json:"cover_image_url"`
	CardCount     int       `db:"card_count" json:"card_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Collection) IsPublic() bool {
	return c.Visibility == VisibilityPublic || c.Visibility == VisibilityShared
}
