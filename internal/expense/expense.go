package expense

import (
	"time"

	"github.com/spendflow/expense-approval/internal"
	"github.com/spendflow/expense-approval/internal/approval"
)

// Expense statuses mirror the state machine's view.
const (
	StatusPending  = approval.StatusPending
	StatusApproved = approval.StatusApproved
	StatusRejected = approval.StatusRejected
)

// Marketplace order statuses, tracked independently of the ledger sync.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusFailed    = "failed"
)

var (
	ErrExpenseNotFound    = internal.NewNotFoundError("expense not found", internal.ErrCodeExpenseNotFound)
	ErrUnauthorizedAccess = internal.NewForbiddenError("unauthorized access to expense", "UNAUTHORIZED_ACCESS")
)

type Expense struct {
	ID                   int64          `json:"id"`
	UserID               int64          `json:"user_id"`
	AmountCents          int64          `json:"amount_cents"`
	Description          string         `json:"description"`
	Category             string         `json:"category"`
	CostCenterID         *int64         `json:"cost_center_id,omitempty"`
	Status               string         `json:"status"`
	CurrentApprovalLevel int            `json:"current_approval_level,omitempty"`
	ApprovalRuleID       *int64         `json:"approval_rule_id,omitempty"`
	ApprovalChain        approval.Chain `json:"approval_chain,omitempty"`
	ApprovedBy           *int64         `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time     `json:"approved_at,omitempty"`
	RejectionReason      *string        `json:"rejection_reason,omitempty"`
	CartID               *string        `json:"cart_id,omitempty"`
	OrderStatus          *string        `json:"order_status,omitempty"`
	PONumber             *string        `json:"po_number,omitempty"`
	LedgerSyncRef        *string        `json:"ledger_sync_ref,omitempty"`
	LedgerSyncError      *string        `json:"ledger_sync_error,omitempty"`
	ExpenseDate          time.Time      `json:"expense_date"`
	SubmittedAt          time.Time      `json:"submitted_at"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (e *Expense) IsPending() bool {
	return e.Status == StatusPending
}

// CanBeDeleted reports whether the submitter may still remove the expense.
// Approved expenses are never deleted.
func (e *Expense) CanBeDeleted() bool {
	return e.Status == StatusPending
}
