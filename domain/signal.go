package domain

import (
	"strings"
	"time"
)

// DecisionKind is the closed set of outcomes a user can record against a
// Signal.
type DecisionKind string

const (
	DecisionPlaced  DecisionKind = "placed"
	DecisionIgnored DecisionKind = "ignored"
)

// Valid reports whether k is a recognised decision kind.
func (k DecisionKind) Valid() bool {
	return k == DecisionPlaced || k == DecisionIgnored
}

// Signal is an immutable record of a calendar-spread dislocation that met
// the user's FF threshold at AsOf. ReasonCodes is stored as a comma-joined
// string; see ReasonCodes()/SetReasonCodes().
type Signal struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Ticker         string    `gorm:"size:5;not null;index" json:"ticker"`
	AsOf           time.Time `gorm:"not null;index" json:"as_of"`
	FrontExpiry    time.Time `gorm:"not null" json:"front_expiry"`
	BackExpiry     time.Time `gorm:"not null" json:"back_expiry"`
	FrontDTE       int       `gorm:"not null" json:"front_dte"`
	BackDTE        int       `gorm:"not null" json:"back_dte"`
	FrontIV        float64   `gorm:"not null" json:"front_iv"`
	BackIV         float64   `gorm:"not null" json:"back_iv"`
	SigmaFwd       float64   `gorm:"not null" json:"sigma_fwd"`
	FFValue        float64   `gorm:"not null" json:"ff_value"`
	VolPoint       VolPoint  `gorm:"size:16;not null" json:"vol_point"`
	QualityScore   float64   `gorm:"not null" json:"quality_score"`
	ReasonCodesRaw string    `gorm:"column:reason_codes" json:"reason_codes"`
	DedupeKey      string    `gorm:"size:64;not null;uniqueIndex" json:"dedupe_key"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Signal.
func (Signal) TableName() string { return "signals" }

// ReasonCodes splits the stored comma-joined reason codes back into an
// ordered slice.
func (s Signal) ReasonCodes() []string {
	if s.ReasonCodesRaw == "" {
		return nil
	}
	return strings.Split(s.ReasonCodesRaw, ",")
}

// SetReasonCodes joins an ordered reason-code sequence for storage.
func (s *Signal) SetReasonCodes(codes []string) {
	s.ReasonCodesRaw = strings.Join(codes, ",")
}

// Decision is a user's recorded response to a Signal. At most one row
// exists per (SignalID, UserID); re-recording overwrites it.
type Decision struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	SignalID   int64        `gorm:"not null;index:idx_signal_user,unique" json:"signal_id"`
	UserID     string       `gorm:"size:64;not null;index:idx_signal_user,unique" json:"user_id"`
	Kind       DecisionKind `gorm:"size:16;not null" json:"kind"`
	Timestamp  time.Time    `gorm:"autoCreateTime" json:"timestamp"`
	EntryPrice *float64     `json:"entry_price,omitempty"`
	ExitPrice  *float64     `json:"exit_price,omitempty"`
	PnL        *float64     `json:"pnl,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

// TableName specifies the table name for Decision.
func (Decision) TableName() string { return "decisions" }
