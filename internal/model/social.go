package model

import "time"

const (
	TargetCard       = "card"
	TargetMemory     = "memory"
	TargetCollection = "collection"
)

type Memory struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	CardID       *string   `db:"card_id" json:"card_id,omitempty"`
	CollectionID *string   `db:"collection_id" json:"collection_id,omitempty"`
	Body         string    `db:"body" json:"body"`
	BodyHTML     string    `db:"body_html" json:"body_html"`
	Visibility   string    `db:"visibility" json:"visibility"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Comment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   string    `db:"target_id" json:"target_id"`
	ParentID   *string   `db:"parent_id" json:"parent_id,omitempty"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const (
	ReactionLike = "like"
	ReactionLove = "love"
	ReactionWow  = "wow"
	ReactionFire = "fire"
)

var ReactionTypes = []string{ReactionLike, ReactionLove, ReactionWow, ReactionFire}

type Reaction struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   string    `db:"target_id" json:"target_id"`
	Type       string    `db:"type" json:"type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ReactionSummary is the reaction state of one target, optionally from one viewer's perspective.
type ReactionSummary struct {
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Counts     map[string]int `json:"counts"`
	Mine       []string       `json:"mine,omitempty"`
}

// Topic is the realtime channel name for a target.
func Topic(targetType, targetID string) string {
	return targetType + ":" + targetID
}
