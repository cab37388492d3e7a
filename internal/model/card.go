package model

import (
	"time"
)

const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
	RarityMythic    = "mythic"
)

// Rarities is ordered from most to least common.
var Rarities = []string{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RarityMythic,
}

const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
	VisibilityShared  = "shared"
)

const (
	CardSourceStudio = "studio"
	CardSourcePSD    = "psd"
	CardSourceUpload = "upload"
	CardSourceImport = "import"
)

type Card struct {
	ID              string     `db:"id" json:"id"`
	CreatorID       string     `db:"creator_id" json:"creator_id"`
	OwnerID         string     `db:"owner_id" json:"owner_id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	ImageURL        string     `db:"image_url" json:"image_url"`
	ImagePath       string     `db:"image_path" json:"-"`
	ThumbnailURL    string     `db:"thumbnail_url" json:"thumbnail_url"`
	Rarity          string     `db:"rarity" json:"rarity"`
	Tags            StringList `db:"tags" json:"tags"`
	DesignMetadata  JSONObject `db:"design_metadata" json:"design_metadata"`
	Effects         Effects    `db:"effects" json:"effects"`
	Visibility      string     `db:"visibility" json:"visibility"`
	IsDraft         bool       `db:"is_draft" json:"is_draft"`
	EditionSize     int        `db:"edition_size" json:"edition_size"`
	Source          string     `db:"source" json:"source"`
	ClientUpdatedAt *time.Time `db:"client_updated_at" json:"client_updated_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	ViewCount int64 `db:"-" json:"view_count"`
}

// IsPublic reports whether anyone may read the card.
func (c *Card) IsPublic() bool {
	return !c.IsDraft && (c.Visibility == VisibilityPublic || c.Visibility == VisibilityShared)
}

// RarityRank returns the position of rarity in Rarities, or -1.
func RarityRank(rarity string) int {
	for i, r := range Rarities {
		if r == rarity {
			return i
		}
	}
	return -1
}

// CardFilter narrows card listings.
type CardFilter struct {
	Rarity string
	Tag    string
	Sort   string // recent (default), title, rarity
	Limit  int
	Offset int
}

const (
	CardSortRecent = "recent"
	CardSortTitle  = "title"
	CardSortRarity = "rarity"
)

const (
	SyncResultCreated  = "created"
	SyncResultUpdated  = "updated"
	SyncResultConflict = "conflict"
	SyncResultError    = "error"
)

// CardSyncResult reports the outcome of one locally saved card pushed to the server.
type CardSyncResult struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Card     *Card  `json:"card,omitempty"`
	Error    string `json:"error,omitempty"`
}
