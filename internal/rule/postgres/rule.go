package postgres

import (
	"gorm.io/gorm"

	expenseDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/expense"
	ruleDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/rule"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) GetAll() ([]*ruleDatamodel.ApprovalRule, error) {
	var rows []*ruleDatamodel.ApprovalRule
	if err := r.db.Order("min_amount_cents ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RuleRepository) GetByID(id int64) (*ruleDatamodel.ApprovalRule, error) {
	var row ruleDatamodel.ApprovalRule
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *RuleRepository) Create(row *ruleDatamodel.ApprovalRule) error {
	return r.db.Create(row).Error
}

func (r *RuleRepository) Update(row *ruleDatamodel.ApprovalRule) error {
	return r.db.Save(row).Error
}

func (r *RuleRepository) Delete(id int64) error {
	return r.db.Delete(&ruleDatamodel.ApprovalRule{}, id).Error
}

func (r *RuleRepository) CountExpensesReferencing(ruleID int64) (int64, error) {
	var count int64
	err := r.db.Model(&expenseDatamodel.Expense{}).
		Where("approval_rule_id = ?", ruleID).
		Count(&count).Error
	return count, err
}
