package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// VolPoint identifies which contract's IV represents an expiry.
type VolPoint string

const (
	VolPointATM     VolPoint = "ATM"
	VolPoint35DPut  VolPoint = "35d_put"
	VolPoint35DCall VolPoint = "35d_call"
)

// Valid reports whether v is one of the recognised vol-point rules.
func (v VolPoint) Valid() bool {
	switch v {
	case VolPointATM, VolPoint35DPut, VolPoint35DCall:
		return true
	}
	return false
}

// TargetDelta returns the target |delta| (0-1) encoded in an "Nd_put"/
// "Nd_call" vol point, e.g. "35d_put" -> 0.35. Only meaningful when Valid()
// and not ATM.
func (v VolPoint) TargetDelta() float64 {
	var n int
	if _, err := fmt.Sscanf(string(v), "%dd_", &n); err != nil {
		return 0
	}
	return float64(n) / 100.0
}

// DTEPair is one pairing rule: pick a front expiry near FrontTarget days
// out and a back expiry near BackTarget days out, each within its
// tolerance window.
type DTEPair struct {
	FrontTarget int `json:"front_target"`
	BackTarget  int `json:"back_target"`
	FrontTol    int `json:"front_tol"`
	BackTol     int `json:"back_tol"`
}

// EncodeDTEPairs marshals a DTEPair sequence for storage in the
// UserPolicy.DTEPairsJSON column.
func EncodeDTEPairs(pairs []DTEPair) (string, error) {
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode dte_pairs: %w", err)
	}
	return string(b), nil
}

// DecodeDTEPairs unmarshals the DTEPairsJSON column back into a DTEPair
// sequence.
func DecodeDTEPairs(raw string) ([]DTEPair, error) {
	if raw == "" {
		return nil, nil
	}
	var pairs []DTEPair
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("decode dte_pairs: %w", err)
	}
	return pairs, nil
}

// QuietHours is a user-local suppression window, possibly wrapping
// midnight (Start > End).
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"
}

// Contains reports whether local clock time t (in the user's zone) falls
// within the quiet window, honouring wrap-around when End < Start.
func (q QuietHours) Contains(t time.Time) (bool, error) {
	if !q.Enabled {
		return false, nil
	}
	start, err := parseClock(q.Start)
	if err != nil {
		return false, fmt.Errorf("quiet_hours.start: %w", err)
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false, fmt.Errorf("quiet_hours.end: %w", err)
	}
	now := t.Hour()*60 + t.Minute()
	if start <= end {
		return now >= start && now <= end, nil
	}
	// Window wraps midnight, e.g. 22:00-07:00.
	return now >= start || now <= end, nil
}

func parseClock(hhmm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid HH:MM value %q: %w", hhmm, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid HH:MM value %q", hhmm)
	}
	return h*60 + m, nil
}

// UserPolicy is a user's per-tenant configuration of thresholds, pairing
// rules, and delivery gates. DTEPairs is stored as JSON in Postgres.
type UserPolicy struct {
	UserID            string    `gorm:"primaryKey;size:64" json:"user_id"`
	FFThreshold       float64   `gorm:"not null" json:"ff_threshold"`
	DTEPairsJSON      string    `gorm:"column:dte_pairs;type:jsonb;not null" json:"-"`
	VolPoint          VolPoint  `gorm:"size:16;not null" json:"vol_point"`
	MinOpenInterest   int       `gorm:"not null;default:0" json:"min_open_interest"`
	MinVolume         int       `gorm:"not null;default:0" json:"min_volume"`
	MaxBidAskPct      float64   `gorm:"not null" json:"max_bid_ask_pct"`
	SigmaFwdFloor     float64   `gorm:"not null;default:0" json:"sigma_fwd_floor"`
	StabilityScans    int       `gorm:"not null;default:1" json:"stability_scans"`
	CooldownMinutes   int       `gorm:"not null;default:0" json:"cooldown_minutes"`
	DeltaFFMin        float64   `gorm:"not null;default:0.02" json:"delta_ff_min"`
	QuietHoursEnabled bool      `gorm:"not null;default:false" json:"quiet_hours_enabled"`
	QuietHoursStart   string    `gorm:"size:5" json:"quiet_hours_start"`
	QuietHoursEnd     string    `gorm:"size:5" json:"quiet_hours_end"`
	Timezone          string    `gorm:"size:64;not null;default:UTC" json:"timezone"`
	Active            bool      `gorm:"not null;default:true" json:"active"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for UserPolicy.
func (UserPolicy) TableName() string { return "user_policies" }

// QuietHoursWindow reassembles the embedded quiet-hours fields into a value type.
func (p UserPolicy) QuietHoursWindow() QuietHours {
	return QuietHours{Enabled: p.QuietHoursEnabled, Start: p.QuietHoursStart, End: p.QuietHoursEnd}
}

// Validate enforces the closed-option and range invariants from the data
// model: 0 < ff_threshold <= 1, non-negative liquidity gates, a validated
// IANA zone, and a recognised vol point.
func (p UserPolicy) Validate() error {
	if p.FFThreshold <= 0 || p.FFThreshold > 1 {
		return fmt.Errorf("ff_threshold must be in (0,1], got %v", p.FFThreshold)
	}
	if !p.VolPoint.Valid() {
		return fmt.Errorf("vol_point %q is not one of ATM, 35d_put, 35d_call", p.VolPoint)
	}
	if p.MinOpenInterest < 0 || p.MinVolume < 0 {
		return fmt.Errorf("min_open_interest and min_volume must be >= 0")
	}
	if p.MaxBidAskPct < 0 || p.MaxBidAskPct > 1 {
		return fmt.Errorf("max_bid_ask_pct must be in [0,1], got %v", p.MaxBidAskPct)
	}
	if p.SigmaFwdFloor < 0 {
		return fmt.Errorf("sigma_fwd_floor must be >= 0")
	}
	if p.StabilityScans < 1 {
		return fmt.Errorf("stability_scans must be >= 1")
	}
	if p.CooldownMinutes < 0 {
		return fmt.Errorf("cooldown_minutes must be >= 0")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("timezone %q is not a valid IANA zone: %w", p.Timezone, err)
	}
	pairs, err := DecodeDTEPairs(p.DTEPairsJSON)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("dte_pairs must contain at least one rule")
	}
	for _, pr := range pairs {
		if pr.FrontTarget >= pr.BackTarget {
			return fmt.Errorf("dte_pair front_target=%d must be < back_target=%d", pr.FrontTarget, pr.BackTarget)
		}
	}
	return nil
}
