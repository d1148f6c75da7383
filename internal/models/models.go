package models

import (
	"time"

	"github.com/google/uuid"
)

var (
	PENDING  = "PENDING"
	REDEEMED = "REDEEMED"
)

type User struct {
	ID              uuid.UUID  `db:"id"`
	Email           string     `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	Name            string     `db:"name"`
	AvatarIndex     int        `db:"avatar_index"`
	Points          int        `db:"points"`
	LifetimePoints  int        `db:"lifetime_points"`
	ScanCount       int        `db:"scan_count"`
	LastScan        *time.Time `db:"last_scan"`
	IsAdmin         bool       `db:"is_admin"`
	ClaimedMissions []string   `db:"claimed_missions"`
	CreatedAt       time.Time  `db:"created_at"`
}

type Order struct {
	ID         uuid.UUID  `db:"id"`
	UserID     uuid.UUID  `db:"user_id"`
	RewardName string     `db:"reward_name"`
	Cost       int        `db:"cost"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	RedeemedAt *time.Time `db:"redeemed_at"`
}

type Reward struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Cost        int       `db:"cost"`
}

// MonthlyRedemptions is the single shared counter record, one bucket per
// reward denomination. Reset by the monthly worker, never by user action.
type MonthlyRedemptions struct {
	One    int `db:"one"`
	Three  int `db:"three"`
	Five   int `db:"five"`
	Ten    int `db:"ten"`
	Twenty int `db:"twenty"`
}

type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	Name           string    `json:"name"`
	AvatarIndex    int       `json:"avatar_index"`
	LifetimePoints int       `json:"lifetime_points"`
	UserID         uuid.UUID `json:"-"`
}
