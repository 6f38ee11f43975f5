package rule

import (
	"github.com/spendflow/expense-approval/internal"
)

type CreateRuleDTO struct {
	Name           string `json:"name"`
	MinAmountCents int64  `json:"min_amount_cents"`
	MaxAmountCents *int64 `json:"max_amount_cents"`
	CostCenterID   *int64 `json:"cost_center_id"`
	LevelsRequired int    `json:"levels_required"`
	IsActive       *bool  `json:"is_active"`
}

func (d *CreateRuleDTO) Validate() error {
	if d.Name == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if d.MinAmountCents < 0 {
		return internal.NewValidationFieldError("min_amount_cents", "minimum amount cannot be negative", internal.ErrCodeInvalidAmount)
	}
	if d.MaxAmountCents != nil && *d.MaxAmountCents < d.MinAmountCents {
		return internal.NewValidationFieldError("max_amount_cents", "maximum amount cannot be below minimum amount", internal.ErrCodeInvalidAmount)
	}
	if d.LevelsRequired < 1 {
		return internal.NewValidationFieldError("levels_required", "at least one approval level is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateRuleDTO struct {
	Name           *string `json:"name"`
	MinAmountCents *int64  `json:"min_amount_cents"`
	MaxAmountCents *int64  `json:"max_amount_cents"`
	CostCenterID   *int64  `json:"cost_center_id"`
	LevelsRequired *int    `json:"levels_required"`
	IsActive       *bool   `json:"is_active"`
}

func (d *UpdateRuleDTO) Validate() error {
	if d.Name != nil && *d.Name == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if d.MinAmountCents != nil && *d.MinAmountCents < 0 {
		return internal.NewValidationFieldError("min_amount_cents", "minimum amount cannot be negative", internal.ErrCodeInvalidAmount)
	}
	if d.LevelsRequired != nil && *d.LevelsRequired < 1 {
		return internal.NewValidationFieldError("levels_required", "at least one approval level is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
