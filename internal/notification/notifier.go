package notification

import (
	"context"
	"log/slog"
)

type Kind string

const (
	// KindApprovalRequested goes to the level-1 approver when a chain is built.
	KindApprovalRequested Kind = "approval_requested"
	// KindApproverTurn goes to the new current-level approver after a
	// non-final approval.
	KindApproverTurn Kind = "approver_turn"
	// KindExpenseApproved and KindExpenseRejected go to the submitter on the
	// terminal transition.
	KindExpenseApproved Kind = "expense_approved"
	KindExpenseRejected Kind = "expense_rejected"
)

type Notification struct {
	Kind           Kind   `json:"kind"`
	ExpenseID      int64  `json:"expense_id"`
	AmountCents    int64  `json:"amount_cents"`
	Description    string `json:"description"`
	RecipientID    int64  `json:"recipient_id"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
	Level          int    `json:"level,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Notifier delivers one notification. Implementations are external
// collaborators (email, chat); delivery failures belong to them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Trigger is the fire-and-forget boundary the state machine talks to.
// Dispatch never blocks the triggering transition and failures are only
// logged.
type Trigger struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewTrigger(notifier Notifier, logger *slog.Logger) *Trigger {
	return &Trigger{notifier: notifier, logger: logger}
}

func (t *Trigger) Fire(ctx context.Context, n Notification) {
	// detach from the request's cancellation; the notification outlives it
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := t.notifier.Notify(ctx, n); err != nil {
			t.logger.Error("notification dispatch failed",
				"kind", n.Kind,
				"expense_id", n.ExpenseID,
				"recipient_id", n.RecipientID,
				"error", err)
			return
		}
		t.logger.Debug("notification dispatched",
			"kind", n.Kind,
			"expense_id", n.ExpenseID,
			"recipient_id", n.RecipientID)
	}()
}
