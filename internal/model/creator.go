package model

import "time"

type CreatorProfile struct {
	UserID             string    `db:"user_id" json:"user_id"`
	DisplayName        string    `db:"display_name" json:"display_name"`
	Bio                string    `db:"bio" json:"bio"`
	AvatarURL          string    `db:"avatar_url" json:"avatar_url"`
	StripeAccountID    *string   `db:"stripe_account_id" json:"stripe_account_id,omitempty"`
	ChargesEnabled     bool      `db:"charges_enabled" json:"charges_enabled"`
	PayoutsEnabled     bool      `db:"payouts_enabled" json:"payouts_enabled"`
	OnboardingComplete bool      `db:"onboarding_complete" json:"onboarding_complete"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

func (p *CreatorProfile) HasConnectAccount() bool {
	return p.StripeAccountID != nil && *p.StripeAccountID != ""
}

// Public strips payment account details for display to other users.
func (p *CreatorProfile) Public() *CreatorProfile {
	return &CreatorProfile{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
	}
}

// EarningsSummary is the creator dashboard view of sales income.
type EarningsSummary struct {
	Currency      string     `json:"currency"`
	PendingCents  int64      `json:"pending_cents"`
	PaidCents     int64      `json:"paid_cents"`
	LifetimeCents int64      `json:"lifetime_cents"`
	Earnings      []*Earning `json:"earnings"`
	Payouts       []*Payout  `json:"payouts"`
}
