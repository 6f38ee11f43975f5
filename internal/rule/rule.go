// Package rule administers the approval rules that decide how many manager
// sign-offs an expense needs.
package rule

import (
	"time"

	ruleDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/rule"
)

type ApprovalRule struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	MinAmountCents int64     `json:"min_amount_cents"`
	MaxAmountCents *int64    `json:"max_amount_cents,omitempty"`
	CostCenterID   *int64    `json:"cost_center_id,omitempty"`
	LevelsRequired int       `json:"levels_required"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func FromDataModel(row *ruleDatamodel.ApprovalRule) *ApprovalRule {
	return &ApprovalRule{
		ID:             row.ID,
		Name:           row.Name,
		MinAmountCents: row.MinAmountCents,
		MaxAmountCents: row.MaxAmountCents,
		CostCenterID:   row.CostCenterID,
		LevelsRequired: row.LevelsRequired,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func (r *ApprovalRule) ToDataModel() *ruleDatamodel.ApprovalRule {
	return &ruleDatamodel.ApprovalRule{
		ID:             r.ID,
		Name:           r.Name,
		MinAmountCents: r.MinAmountCents,
		MaxAmountCents: r.MaxAmountCents,
		CostCenterID:   r.CostCenterID,
		LevelsRequired: r.LevelsRequired,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// Overlaps reports whether two rules in the same cost-center scope cover a
// common amount range.
func (r *ApprovalRule) Overlaps(other *ApprovalRule) bool {
	if !sameScope(r.CostCenterID, other.CostCenterID) {
		return false
	}
	if r.MaxAmountCents != nil && *r.MaxAmountCents < other.MinAmountCents {
		return false
	}
	if other.MaxAmountCents != nil && *other.MaxAmountCents < r.MinAmountCents {
		return false
	}
	return true
}

func sameScope(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
