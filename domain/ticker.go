// Package domain defines the durable records owned by the relational store:
// tickers, subscriptions, user policies, signals, and decisions.
package domain

import "time"

// Tier classifies how often a ticker is scanned.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Ticker is the subject of scans: a symbol with a derived tier and
// subscriber count.
type Ticker struct {
	Symbol            string    `gorm:"primaryKey;size:5" json:"symbol"`
	ActiveSubscribers int       `gorm:"not null;default:0" json:"active_subscribers"`
	LastScanAt        time.Time `json:"last_scan_at,omitempty"`
	Tier              Tier      `gorm:"size:10;not null;default:low" json:"tier"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Ticker.
func (Ticker) TableName() string { return "tickers" }

// Subscription is the (user, ticker) edge.
type Subscription struct {
	ID      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  string    `gorm:"size:64;not null;uniqueIndex:idx_user_ticker" json:"user_id"`
	Ticker  string    `gorm:"size:5;not null;uniqueIndex:idx_user_ticker" json:"ticker"`
	Active  bool      `gorm:"not null;default:true" json:"active"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// TableName specifies the table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }
