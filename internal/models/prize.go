package models

import "time"

// Prize is a redeemable reward in an organization's prize shop.
type Prize struct {
	ID             int64
	OrgID          string
	Title          string
	PointsRequired int
	Description    string
	Icon           string
}

// Redemption records a kid spending points on a prize.
type Redemption struct {
	ID         int64
	KidID      string
	PrizeID    int64
	Points     int
	RedeemedAt time.Time
}
