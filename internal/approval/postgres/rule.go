package postgres

import (
	"gorm.io/gorm"

	"github.com/spendflow/expense-approval/internal/approval"
	ruleDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/rule"
)

// RuleRepository is the matcher's read-side access to approval rules.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) approval.RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) FindActiveMatching(amountCents int64, costCenterID *int64) ([]*approval.Rule, error) {
	query := r.db.Model(&ruleDatamodel.ApprovalRule{}).
		Where("is_active = ?", true).
		Where("min_amount_cents <= ?", amountCents).
		Where("max_amount_cents IS NULL OR max_amount_cents >= ?", amountCents)

	if costCenterID != nil {
		query = query.Where("cost_center_id IS NULL OR cost_center_id = ?", *costCenterID)
	} else {
		query = query.Where("cost_center_id IS NULL")
	}

	var rows []*ruleDatamodel.ApprovalRule
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	rules := make([]*approval.Rule, len(rows))
	for i, row := range rows {
		rules[i] = toDomainRule(row)
	}
	return rules, nil
}

func (r *RuleRepository) GetByID(id int64) (*approval.Rule, error) {
	var row ruleDatamodel.ApprovalRule
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, approval.ErrRuleNotFound
		}
		return nil, err
	}
	return toDomainRule(&row), nil
}

func toDomainRule(row *ruleDatamodel.ApprovalRule) *approval.Rule {
	return &approval.Rule{
		ID:             row.ID,
		Name:           row.Name,
		MinAmountCents: row.MinAmountCents,
		MaxAmountCents: row.MaxAmountCents,
		CostCenterID:   row.CostCenterID,
		LevelsRequired: row.LevelsRequired,
		IsActive:       row.IsActive,
	}
}
