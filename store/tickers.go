package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwnn/forward-factor/domain"
)

// TickerRepository owns Ticker rows: creation on first subscription and
// tier recomputation.
type TickerRepository struct {
	db *DB
}

// NewTickerRepository creates a TickerRepository.
func NewTickerRepository(db *DB) *TickerRepository {
	return &TickerRepository{db: db}
}

// EnsureTicker creates the ticker row if absent (idempotent upsert on the
// symbol primary key), used on first subscription.
func (r *TickerRepository) EnsureTicker(symbol string) error {
	ticker := domain.Ticker{Symbol: symbol, Tier: domain.TierLow}
	err := r.db.gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&ticker).Error
	if err != nil {
		return fmt.Errorf("EnsureTicker(%s): %w", symbol, err)
	}
	return nil
}

// SetTier is an idempotent write of the ticker's computed tier; repeated
// writes of the same tier are no-ops from the scheduler's perspective.
func (r *TickerRepository) SetTier(symbol string, tier domain.Tier, subscriberCount int) error {
	err := r.db.gdb.Model(&domain.Ticker{}).
		Where("symbol = ?", symbol).
		Updates(map[string]interface{}{"tier": tier, "active_subscribers": subscriberCount}).Error
	if err != nil {
		return fmt.Errorf("SetTier(%s): %w", symbol, err)
	}
	return nil
}

// TouchLastScan updates last_scan_at after a worker completes a job
// (the DONE state).
func (r *TickerRepository) TouchLastScan(symbol string, when time.Time) error {
	err := r.db.gdb.Model(&domain.Ticker{}).Where("symbol = ?", symbol).Update("last_scan_at", when).Error
	if err != nil {
		return fmt.Errorf("TouchLastScan(%s): %w", symbol, err)
	}
	return nil
}

// ListByTier returns all tickers currently assigned to tier, for the
// scheduler's per-tick enumeration.
func (r *TickerRepository) ListByTier(tier domain.Tier) ([]domain.Ticker, error) {
	var tickers []domain.Ticker
	if err := r.db.gdb.Where("tier = ?", tier).Find(&tickers).Error; err != nil {
		return nil, fmt.Errorf("ListByTier(%s): %w", tier, err)
	}
	return tickers, nil
}

// All returns every known ticker, used by the daily tier-recompute pass.
func (r *TickerRepository) All() ([]domain.Ticker, error) {
	var tickers []domain.Ticker
	if err := r.db.gdb.Find(&tickers).Error; err != nil {
		return nil, fmt.Errorf("All: %w", err)
	}
	return tickers, nil
}

// Get fetches a single ticker by symbol.
func (r *TickerRepository) Get(symbol string) (*domain.Ticker, error) {
	var t domain.Ticker
	err := r.db.gdb.Where("symbol = ?", symbol).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get(%s): %w", symbol, err)
	}
	return &t, nil
}
