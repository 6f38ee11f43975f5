package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EventTypeExpenseApproved fires exactly once per expense, on the single
	// winning transition into terminal approved (full chain completion or
	// auto-approval at creation). The completion effects dispatcher listens.
	EventTypeExpenseApproved = "expense.approved"
	EventTypeExpenseRejected = "expense.rejected"
)

type ExpenseApprovedEvent struct {
	BaseEvent
	ExpenseID   int64  `json:"expense_id"`
	UserID      int64  `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	AutoApprove bool   `json:"auto_approve"`
	CartID      string `json:"cart_id,omitempty"`
}

func NewExpenseApprovedEvent(expenseID, userID, amountCents int64, autoApprove bool, cartID string) *ExpenseApprovedEvent {
	return &ExpenseApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseApproved,
			Timestamp: time.Now(),
		},
		ExpenseID:   expenseID,
		UserID:      userID,
		AmountCents: amountCents,
		AutoApprove: autoApprove,
		CartID:      cartID,
	}
}

type ExpenseRejectedEvent struct {
	BaseEvent
	ExpenseID int64  `json:"expense_id"`
	UserID    int64  `json:"user_id"`
	Reason    string `json:"reason"`
}

func NewExpenseRejectedEvent(expenseID, userID int64, reason string) *ExpenseRejectedEvent {
	return &ExpenseRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseRejected,
			Timestamp: time.Now(),
		},
		ExpenseID: expenseID,
		UserID:    userID,
		Reason:    reason,
	}
}
