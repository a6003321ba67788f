package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwnn/forward-factor/domain"
)

// SignalRepository owns Signal and Decision rows. Creation relies on the
// database's unique constraint on dedupe_key, not a prior SELECT, so
// concurrent workers racing on the same logical signal are race-free.
type SignalRepository struct {
	db *DB
}

// NewSignalRepository creates a SignalRepository.
func NewSignalRepository(db *DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create inserts signal. A unique-constraint violation on dedupe_key is a
// duplicate, silently coalesced: it returns (nil, nil) rather than an
// error.
func (r *SignalRepository) Create(signal domain.Signal) (*domain.Signal, error) {
	err := r.db.gdb.Create(&signal).Error
	if err == nil {
		return &signal, nil
	}
	if isUniqueViolation(err) {
		return nil, nil
	}
	return nil, fmt.Errorf("Create signal(%s): %w", signal.DedupeKey, err)
}

// isUniqueViolation detects a Postgres unique-constraint error (23505)
// surfaced through pgx/GORM without depending on a specific driver error
// type, since error unwrapping across driver boundaries is unreliable.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(strings.ToLower(msg), "duplicate key")
}

// RecordDecision upserts a Decision keyed by (signal_id, user_id). Kind
// must be one of the closed decision kinds.
func (r *SignalRepository) RecordDecision(signalID int64, userID string, kind domain.DecisionKind, entryPrice, exitPrice, pnl *float64, notes string) (*domain.Decision, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid decision kind %q", kind)
	}

	decision := domain.Decision{
		SignalID:   signalID,
		UserID:     userID,
		Kind:       kind,
		Timestamp:  time.Now().UTC(),
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		Notes:      notes,
	}

	err := r.db.gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "signal_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"kind", "timestamp", "entry_price", "exit_price", "pnl", "notes"},
		),
	}).Create(&decision).Error
	if err != nil {
		return nil, fmt.Errorf("RecordDecision(signal=%d,user=%s): %w", signalID, userID, err)
	}
	return &decision, nil
}

// RecentSignals returns signals for tickers the user subscribes to,
// newest first, optionally filtered to one ticker.
func (r *SignalRepository) RecentSignals(subscribedTickers []string, ticker string, limit int) ([]domain.Signal, error) {
	if len(subscribedTickers) == 0 {
		return nil, nil
	}
	q := r.db.gdb.Where("ticker IN ?", subscribedTickers).Order("as_of DESC")
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var signals []domain.Signal
	if err := q.Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("RecentSignals: %w", err)
	}
	return signals, nil
}

// HistoryEntry pairs a Signal with the user's Decision, if any.
type HistoryEntry struct {
	Signal   domain.Signal
	Decision *domain.Decision
}

// History returns (signal, decision?) pairs for signals on the user's
// subscribed tickers, newest first.
func (r *SignalRepository) History(subscribedTickers []string, userID string, limit int) ([]HistoryEntry, error) {
	if len(subscribedTickers) == 0 {
		return nil, nil
	}
	var signals []domain.Signal
	q := r.db.gdb.Where("ticker IN ?", subscribedTickers).Order("as_of DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("History signals: %w", err)
	}

	ids := make([]int64, len(signals))
	for i, s := range signals {
		ids[i] = s.ID
	}
	var decisions []domain.Decision
	if len(ids) > 0 {
		if err := r.db.gdb.Where("signal_id IN ? AND user_id = ?", ids, userID).Find(&decisions).Error; err != nil {
			return nil, fmt.Errorf("History decisions: %w", err)
		}
	}
	bySignal := make(map[int64]domain.Decision, len(decisions))
	for _, d := range decisions {
		bySignal[d.SignalID] = d
	}

	entries := make([]HistoryEntry, len(signals))
	for i, s := range signals {
		entry := HistoryEntry{Signal: s}
		if d, ok := bySignal[s.ID]; ok {
			dCopy := d
			entry.Decision = &dCopy
		}
		entries[i] = entry
	}
	return entries, nil
}

// GetByDedupeKey resolves the existing row for a logical signal another
// worker (or an earlier subscriber of the same ticker) already persisted,
// so a coalesced duplicate can still be referenced by a notification.
func (r *SignalRepository) GetByDedupeKey(key string) (*domain.Signal, error) {
	var s domain.Signal
	err := r.db.gdb.Where("dedupe_key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByDedupeKey(%s): %w", key, err)
	}
	return &s, nil
}

// GetByID fetches a single signal, used by the notification router to
// re-check the threshold before dispatch.
func (r *SignalRepository) GetByID(id int64) (*domain.Signal, error) {
	var s domain.Signal
	err := r.db.gdb.First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID(%d): %w", id, err)
	}
	return &s, nil
}
