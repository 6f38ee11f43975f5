package expense

import "time"

type Expense struct {
	ID                   int64      `gorm:"primaryKey"`
	UserID               int64      `gorm:"column:user_id;not null;index"`
	AmountCents          int64      `gorm:"column:amount_cents;not null"`
	Description          string     `gorm:"not null"`
	Category             string     `gorm:"column:category"`
	CostCenterID         *int64     `gorm:"column:cost_center_id;index"`
	Status               string     `gorm:"column:status;default:pending;index"`
	CurrentApprovalLevel int        `gorm:"column:current_approval_level;default:0"`
	ApprovalRuleID       *int64     `gorm:"column:approval_rule_id;index"`
	ApprovalChain        []byte     `gorm:"column:approval_chain;type:jsonb"`
	ApprovedBy           *int64     `gorm:"column:approved_by"`
	ApprovedAt           *time.Time `gorm:"column:approved_at"`
	RejectionReason      *string    `gorm:"column:rejection_reason"`
	CartID               *string    `gorm:"column:cart_id;index"`
	OrderStatus          *string    `gorm:"column:order_status"`
	PONumber             *string    `gorm:"column:po_number"`
	LedgerSyncRef        *string    `gorm:"column:ledger_sync_ref"`
	LedgerSyncError      *string    `gorm:"column:ledger_sync_error"`
	ExpenseDate          time.Time  `gorm:"column:expense_date;type:date"`
	SubmittedAt          time.Time  `gorm:"column:submitted_at"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}
