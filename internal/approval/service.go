package approval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spendflow/expense-approval/internal/core/events"
	"github.com/spendflow/expense-approval/internal/notification"
)

// ExpenseRecord is the state machine's view of one expense row.
type ExpenseRecord struct {
	ID                   int64
	UserID               int64
	AmountCents          int64
	Description          string
	Status               string
	CurrentApprovalLevel int
	ApprovalRuleID       *int64
	RawChain             []byte
	CartID               *string
}

// DecisionUpdate is what one approve/reject/rescind writes back. The store
// applies it only while the row still matches the status and level the
// decision was computed against.
type DecisionUpdate struct {
	Status               string
	CurrentApprovalLevel int
	Chain                []byte
	ApprovedBy           *int64
	ApprovedAt           *time.Time
	RejectionReason      *string
}

type ExpenseStore interface {
	GetByID(id int64) (*ExpenseRecord, error)
	// ApplyDecision performs a conditional update keyed on
	// (status = pending, current_approval_level = expectedLevel) and reports
	// whether any row was written.
	ApplyDecision(id int64, expectedLevel int, upd DecisionUpdate) (bool, error)
}

// DecisionResult tells the caller whether an approval was final and, if not,
// who acts next.
type DecisionResult struct {
	ExpenseID    int64  `json:"expense_id"`
	Status       string `json:"status"`
	Final        bool   `json:"final"`
	NextApprover *Step  `json:"next_approver,omitempty"`
}

// Service owns per-expense approval state. It is the only writer of
// status/level/chain; step decisions are strictly serialized by level via
// conditional updates, so concurrent approvers cannot double-advance a chain.
type Service struct {
	store    ExpenseStore
	users    UserDirectory
	bus      *events.EventBus
	notifier *notification.Trigger
	logger   *slog.Logger
}

func NewService(store ExpenseStore, users UserDirectory, bus *events.EventBus, notifier *notification.Trigger, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		users:    users,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

// Approve records the current-level approver's sign-off. The final approval
// transitions the expense to terminal approved and triggers completion
// effects; earlier approvals advance the level and notify the next approver.
func (s *Service) Approve(ctx context.Context, expenseID, actorID int64, comments *string) (*DecisionResult, error) {
	rec, chain, err := s.loadPending(expenseID)
	if err != nil {
		return nil, err
	}

	level := rec.CurrentApprovalLevel
	step := chain.StepAt(level)
	if step == nil {
		s.logger.Error("current level points outside the chain",
			"expense_id", expenseID, "level", level, "chain_len", len(chain))
		return nil, ErrChainCorrupt
	}
	if step.ApproverID != actorID {
		s.logger.Warn("approve denied: actor is not the current approver",
			"expense_id", expenseID,
			"actor_id", actorID,
			"expected_approver_id", step.ApproverID,
			"level", level)
		return nil, ErrNotCurrentApprover
	}

	now := time.Now()
	step.Status = StepStatusApproved
	step.DecidedBy = &actorID
	step.DecidedAt = &now
	step.Comments = comments

	encoded, err := chain.Encode()
	if err != nil {
		return nil, err
	}

	final := level == len(chain)
	upd := DecisionUpdate{
		Status:               StatusPending,
		CurrentApprovalLevel: level + 1,
		Chain:                encoded,
	}
	if final {
		upd.Status = StatusApproved
		upd.CurrentApprovalLevel = level
		upd.ApprovedBy = &actorID
		upd.ApprovedAt = &now
	}

	applied, err := s.store.ApplyDecision(expenseID, level, upd)
	if err != nil {
		s.logger.Error("failed to persist approval decision", "error", err, "expense_id", expenseID)
		return nil, err
	}
	if !applied {
		s.logger.Warn("approval lost a decision race",
			"expense_id", expenseID, "actor_id", actorID, "level", level)
		return nil, ErrDecisionConflict
	}

	s.logger.Info("approval recorded",
		"expense_id", expenseID,
		"actor_id", actorID,
		"level", level,
		"final", final)

	if final {
		s.bus.Publish(ctx, events.NewExpenseApprovedEvent(
			rec.ID, rec.UserID, rec.AmountCents, false, derefString(rec.CartID)))
		s.notifySubmitter(ctx, rec, notification.KindExpenseApproved, "")
		return &DecisionResult{ExpenseID: expenseID, Status: StatusApproved, Final: true}, nil
	}

	next := chain.StepAt(level + 1)
	s.notifier.Fire(ctx, notification.Notification{
		Kind:           notification.KindApproverTurn,
		ExpenseID:      rec.ID,
		AmountCents:    rec.AmountCents,
		Description:    rec.Description,
		RecipientID:    next.ApproverID,
		RecipientName:  next.ApproverName,
		RecipientEmail: next.ApproverEmail,
		Level:          next.Level,
	})

	return &DecisionResult{
		ExpenseID:    expenseID,
		Status:       StatusPending,
		Final:        false,
		NextApprover: next,
	}, nil
}

// Reject terminates the expense at any level. Later steps stay pending in
// the stored chain and are never decided. Completion effects do not fire.
func (s *Service) Reject(ctx context.Context, expenseID, actorID int64, comments string) error {
	if strings.TrimSpace(comments) == "" {
		return ErrCommentRequired
	}

	rec, chain, err := s.loadPending(expenseID)
	if err != nil {
		return err
	}

	level := rec.CurrentApprovalLevel
	step := chain.StepAt(level)
	if step == nil {
		s.logger.Error("current level points outside the chain",
			"expense_id", expenseID, "level", level, "chain_len", len(chain))
		return ErrChainCorrupt
	}
	if step.ApproverID != actorID {
		s.logger.Warn("reject denied: actor is not the current approver",
			"expense_id", expenseID,
			"actor_id", actorID,
			"expected_approver_id", step.ApproverID,
			"level", level)
		return ErrNotCurrentApprover
	}

	now := time.Now()
	step.Status = StepStatusRejected
	step.DecidedBy = &actorID
	step.DecidedAt = &now
	step.Comments = &comments

	encoded, err := chain.Encode()
	if err != nil {
		return err
	}

	applied, err := s.store.ApplyDecision(expenseID, level, DecisionUpdate{
		Status:               StatusRejected,
		CurrentApprovalLevel: level,
		Chain:                encoded,
		RejectionReason:      &comments,
	})
	if err != nil {
		s.logger.Error("failed to persist rejection", "error", err, "expense_id", expenseID)
		return err
	}
	if !applied {
		s.logger.Warn("rejection lost a decision race",
			"expense_id", expenseID, "actor_id", actorID, "level", level)
		return ErrDecisionConflict
	}

	s.logger.Info("expense rejected",
		"expense_id", expenseID,
		"actor_id", actorID,
		"level", level,
		"reason", comments)

	s.bus.Publish(ctx, events.NewExpenseRejectedEvent(rec.ID, rec.UserID, comments))
	s.notifySubmitter(ctx, rec, notification.KindExpenseRejected, comments)
	return nil
}

// Rescind is the submitter's self-service withdrawal of a pending expense.
// It bypasses the chain entirely, including any partially signed-off levels.
func (s *Service) Rescind(ctx context.Context, expenseID, ownerID int64) error {
	rec, err := s.store.GetByID(expenseID)
	if err != nil {
		return err
	}
	if rec.Status != StatusPending {
		return ErrExpenseNotFound
	}
	if rec.UserID != ownerID {
		s.logger.Warn("rescind denied: actor is not the submitter",
			"expense_id", expenseID, "actor_id", ownerID, "submitter_id", rec.UserID)
		return ErrNotSubmitter
	}

	reason := RescindReason
	applied, err := s.store.ApplyDecision(expenseID, rec.CurrentApprovalLevel, DecisionUpdate{
		Status:               StatusRejected,
		CurrentApprovalLevel: rec.CurrentApprovalLevel,
		Chain:                rec.RawChain,
		RejectionReason:      &reason,
	})
	if err != nil {
		s.logger.Error("failed to persist rescind", "error", err, "expense_id", expenseID)
		return err
	}
	if !applied {
		return ErrDecisionConflict
	}

	s.logger.Info("expense rescinded by submitter", "expense_id", expenseID, "user_id", ownerID)
	s.bus.Publish(ctx, events.NewExpenseRejectedEvent(rec.ID, rec.UserID, reason))
	return nil
}

// loadPending fetches a pending expense and its decoded chain, mapping a
// missing or malformed chain to an inconsistent-state fault.
func (s *Service) loadPending(expenseID int64) (*ExpenseRecord, Chain, error) {
	rec, err := s.store.GetByID(expenseID)
	if err != nil {
		return nil, nil, err
	}
	if rec.Status != StatusPending {
		return nil, nil, ErrExpenseNotFound
	}

	chain, err := DecodeChain(rec.RawChain)
	if err != nil {
		s.logger.Error("pending expense has no usable approval chain",
			"expense_id", expenseID, "error", err)
		return nil, nil, ErrChainCorrupt
	}
	return rec, chain, nil
}

func (s *Service) notifySubmitter(ctx context.Context, rec *ExpenseRecord, kind notification.Kind, reason string) {
	submitter, err := s.users.GetApprover(rec.UserID)
	if err != nil {
		s.logger.Error("submitter lookup failed for notification",
			"expense_id", rec.ID, "user_id", rec.UserID, "error", err)
		return
	}
	s.notifier.Fire(ctx, notification.Notification{
		Kind:           kind,
		ExpenseID:      rec.ID,
		AmountCents:    rec.AmountCents,
		Description:    rec.Description,
		RecipientID:    submitter.ID,
		RecipientName:  submitter.Name,
		RecipientEmail: submitter.Email,
		Reason:         reason,
	})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
