package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/spendflow/expense-approval/internal/approval"
	expenseDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/expense"
)

// ExpenseStore gives the state machine conditional access to expense rows.
type ExpenseStore struct {
	db *gorm.DB
}

func NewExpenseStore(db *gorm.DB) approval.ExpenseStore {
	return &ExpenseStore{db: db}
}

func (s *ExpenseStore) GetByID(id int64) (*approval.ExpenseRecord, error) {
	var row expenseDatamodel.Expense
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, approval.ErrExpenseNotFound
		}
		return nil, err
	}

	return &approval.ExpenseRecord{
		ID:                   row.ID,
		UserID:               row.UserID,
		AmountCents:          row.AmountCents,
		Description:          row.Description,
		Status:               row.Status,
		CurrentApprovalLevel: row.CurrentApprovalLevel,
		ApprovalRuleID:       row.ApprovalRuleID,
		RawChain:             row.ApprovalChain,
		CartID:               row.CartID,
	}, nil
}

// ApplyDecision is the optimistic-concurrency write: the row is updated only
// while it is still pending at the level the decision was computed against.
// Losing a race means zero rows affected, never a lost update.
func (s *ExpenseStore) ApplyDecision(id int64, expectedLevel int, upd approval.DecisionUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status":                 upd.Status,
		"current_approval_level": upd.CurrentApprovalLevel,
		"approval_chain":         upd.Chain,
		"updated_at":             time.Now(),
	}
	if upd.ApprovedBy != nil {
		updates["approved_by"] = *upd.ApprovedBy
	}
	if upd.ApprovedAt != nil {
		updates["approved_at"] = *upd.ApprovedAt
	}
	if upd.RejectionReason != nil {
		updates["rejection_reason"] = *upd.RejectionReason
	}

	result := s.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND status = ? AND current_approval_level = ?",
			id, approval.StatusPending, expectedLevel).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
