package store

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/ashwnn/forward-factor/domain"
)

// SubscriptionRepository owns the (user, ticker) edges.
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a SubscriptionRepository.
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe creates or reactivates a (user, ticker) subscription. Unique
// per (user, ticker) via the idx_user_ticker constraint.
func (r *SubscriptionRepository) Subscribe(userID, ticker string) error {
	sub := domain.Subscription{UserID: userID, Ticker: ticker, Active: true}
	err := r.db.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "ticker"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"active": true}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("Subscribe(%s,%s): %w", userID, ticker, err)
	}
	return nil
}

// Unsubscribe flips the active flag off without deleting history.
func (r *SubscriptionRepository) Unsubscribe(userID, ticker string) error {
	err := r.db.gdb.Model(&domain.Subscription{}).
		Where("user_id = ? AND ticker = ?", userID, ticker).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("Unsubscribe(%s,%s): %w", userID, ticker, err)
	}
	return nil
}

// ActiveSubscriberCount reports how many active subscribers a ticker has,
// for tiering.
func (r *SubscriptionRepository) ActiveSubscriberCount(ticker string) (int64, error) {
	var count int64
	err := r.db.gdb.Model(&domain.Subscription{}).Where("ticker = ? AND active = ?", ticker, true).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("ActiveSubscriberCount(%s): %w", ticker, err)
	}
	return count, nil
}

// ActiveUserIDsForTicker returns the users actively subscribed to ticker,
// for the worker's per-subscriber fan-out.
func (r *SubscriptionRepository) ActiveUserIDsForTicker(ticker string) ([]string, error) {
	var ids []string
	err := r.db.gdb.Model(&domain.Subscription{}).
		Where("ticker = ? AND active = ?", ticker, true).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("ActiveUserIDsForTicker(%s): %w", ticker, err)
	}
	return ids, nil
}

// SubscribedTickers returns the tickers a user actively subscribes to,
// used to scope recent_signals/history queries.
func (r *SubscriptionRepository) SubscribedTickers(userID string) ([]string, error) {
	var tickers []string
	err := r.db.gdb.Model(&domain.Subscription{}).
		Where("user_id = ? AND active = ?", userID, true).
		Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("SubscribedTickers(%s): %w", userID, err)
	}
	return tickers, nil
}

// DistinctTickers lists every ticker with at least one subscription row,
// for the daily tier-recompute sweep.
func (r *SubscriptionRepository) DistinctTickers() ([]string, error) {
	var tickers []string
	err := r.db.gdb.Model(&domain.Subscription{}).Distinct("ticker").Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("DistinctTickers: %w", err)
	}
	return tickers, nil
}
