package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ashwnn/forward-factor/domain"
)

// PolicyRepository owns UserPolicy rows.
type PolicyRepository struct {
	db *DB
}

// NewPolicyRepository creates a PolicyRepository.
func NewPolicyRepository(db *DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// Upsert validates and writes a policy. Unknown IANA zones are rejected here, at
// policy-write time, per the clocks design note.
func (r *PolicyRepository) Upsert(policy domain.UserPolicy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid policy for user %s: %w", policy.UserID, err)
	}
	err := r.db.gdb.Save(&policy).Error
	if err != nil {
		return fmt.Errorf("Upsert policy(%s): %w", policy.UserID, err)
	}
	return nil
}

// Get fetches a single user's policy.
func (r *PolicyRepository) Get(userID string) (*domain.UserPolicy, error) {
	var p domain.UserPolicy
	err := r.db.gdb.Where("user_id = ?", userID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get policy(%s): %w", userID, err)
	}
	return &p, nil
}

// MarkInactive flips a user's policy to inactive, used by the notification
// router when the messenger reports a recipient as permanently
// unreachable.
func (r *PolicyRepository) MarkInactive(userID string) error {
	err := r.db.gdb.Model(&domain.UserPolicy{}).Where("user_id = ?", userID).Update("active", false).Error
	if err != nil {
		return fmt.Errorf("MarkInactive(%s): %w", userID, err)
	}
	return nil
}

// BatchGet loads policies for many users in one query, required to avoid
// N+1 amplification in the worker's per-subscriber fan-out.
func (r *PolicyRepository) BatchGet(userIDs []string) (map[string]domain.UserPolicy, error) {
	if len(userIDs) == 0 {
		return map[string]domain.UserPolicy{}, nil
	}
	var policies []domain.UserPolicy
	if err := r.db.gdb.Where("user_id IN ? AND active = ?", userIDs, true).Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("BatchGet policies: %w", err)
	}
	out := make(map[string]domain.UserPolicy, len(policies))
	for _, p := range policies {
		out[p.UserID] = p
	}
	return out, nil
}
