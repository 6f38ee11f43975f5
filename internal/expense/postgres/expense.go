package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/spendflow/expense-approval/internal/approval"
	expenseDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/expense"
	"github.com/spendflow/expense-approval/internal/effects"
	"github.com/spendflow/expense-approval/internal/expense"
)

// ExpenseRepository implements expense.Repository and effects.Store over the
// same expenses table.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(exp *expense.Expense) error {
	row, err := toDataModel(exp)
	if err != nil {
		return err
	}
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	exp.ID = row.ID
	exp.CreatedAt = row.CreatedAt
	exp.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ExpenseRepository) GetByID(id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return fromDataModel(&row)
}

func (r *ExpenseRepository) GetByUserID(userID int64, limit, offset int) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromDataModelSlice(rows)
}

func (r *ExpenseRepository) GetAllExpenses(limit, offset int) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.
		Order("submitted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromDataModelSlice(rows)
}

func (r *ExpenseRepository) Delete(id int64) error {
	return r.db.Delete(&expenseDatamodel.Expense{}, id).Error
}

// --- effects.Store ---

func (r *ExpenseRepository) GetEffectState(expenseID int64) (*effects.EffectState, error) {
	var row expenseDatamodel.Expense
	if err := r.db.Where("id = ?", expenseID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return &effects.EffectState{
		ExpenseID:     row.ID,
		UserID:        row.UserID,
		AmountCents:   row.AmountCents,
		Description:   row.Description,
		Category:      row.Category,
		CostCenterID:  row.CostCenterID,
		CartID:        row.CartID,
		OrderStatus:   row.OrderStatus,
		LedgerSyncRef: row.LedgerSyncRef,
	}, nil
}

func (r *ExpenseRepository) RecordLedgerSync(expenseID int64, ref string) error {
	return r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ?", expenseID).
		Updates(map[string]interface{}{
			"ledger_sync_ref":   ref,
			"ledger_sync_error": nil,
			"updated_at":        time.Now(),
		}).Error
}

func (r *ExpenseRepository) RecordLedgerError(expenseID int64, message string) error {
	return r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ?", expenseID).
		Updates(map[string]interface{}{
			"ledger_sync_error": message,
			"updated_at":        time.Now(),
		}).Error
}

// RecordOrderConfirmed flips the order to confirmed only while it is still
// pending, so a duplicate dispatch cannot double-confirm.
func (r *ExpenseRepository) RecordOrderConfirmed(expenseID int64, poNumber string) (bool, error) {
	result := r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND order_status = ?", expenseID, expense.OrderStatusPending).
		Updates(map[string]interface{}{
			"order_status": expense.OrderStatusConfirmed,
			"po_number":    poNumber,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ExpenseRepository) RecordOrderFailed(expenseID int64) (bool, error) {
	result := r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND order_status = ?", expenseID, expense.OrderStatusPending).
		Updates(map[string]interface{}{
			"order_status": expense.OrderStatusFailed,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// --- conversions ---

func toDataModel(e *expense.Expense) (*expenseDatamodel.Expense, error) {
	var chain []byte
	if len(e.ApprovalChain) > 0 {
		encoded, err := e.ApprovalChain.Encode()
		if err != nil {
			return nil, err
		}
		chain = encoded
	}

	return &expenseDatamodel.Expense{
		ID:                   e.ID,
		UserID:               e.UserID,
		AmountCents:          e.AmountCents,
		Description:          e.Description,
		Category:             e.Category,
		CostCenterID:         e.CostCenterID,
		Status:               e.Status,
		CurrentApprovalLevel: e.CurrentApprovalLevel,
		ApprovalRuleID:       e.ApprovalRuleID,
		ApprovalChain:        chain,
		ApprovedBy:           e.ApprovedBy,
		ApprovedAt:           e.ApprovedAt,
		RejectionReason:      e.RejectionReason,
		CartID:               e.CartID,
		OrderStatus:          e.OrderStatus,
		PONumber:             e.PONumber,
		LedgerSyncRef:        e.LedgerSyncRef,
		LedgerSyncError:      e.LedgerSyncError,
		ExpenseDate:          e.ExpenseDate,
		SubmittedAt:          e.SubmittedAt,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}, nil
}

func fromDataModel(row *expenseDatamodel.Expense) (*expense.Expense, error) {
	var chain approval.Chain
	if len(row.ApprovalChain) > 0 {
		decoded, err := approval.DecodeChain(row.ApprovalChain)
		if err != nil {
			// a stored chain is never trusted on read
			return nil, approval.ErrChainCorrupt
		}
		chain = decoded
	}

	return &expense.Expense{
		ID:                   row.ID,
		UserID:               row.UserID,
		AmountCents:          row.AmountCents,
		Description:          row.Description,
		Category:             row.Category,
		CostCenterID:         row.CostCenterID,
		Status:               row.Status,
		CurrentApprovalLevel: row.CurrentApprovalLevel,
		ApprovalRuleID:       row.ApprovalRuleID,
		ApprovalChain:        chain,
		ApprovedBy:           row.ApprovedBy,
		ApprovedAt:           row.ApprovedAt,
		RejectionReason:      row.RejectionReason,
		CartID:               row.CartID,
		OrderStatus:          row.OrderStatus,
		PONumber:             row.PONumber,
		LedgerSyncRef:        row.LedgerSyncRef,
		LedgerSyncError:      row.LedgerSyncError,
		ExpenseDate:          row.ExpenseDate,
		SubmittedAt:          row.SubmittedAt,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}, nil
}

func fromDataModelSlice(rows []*expenseDatamodel.Expense) ([]*expense.Expense, error) {
	result := make([]*expense.Expense, len(rows))
	for i, row := range rows {
		converted, err := fromDataModel(row)
		if err != nil {
			return nil, err
		}
		result[i] = converted
	}
	return result, nil
}
