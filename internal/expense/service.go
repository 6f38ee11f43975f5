package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/spendflow/expense-approval/internal"
	"github.com/spendflow/expense-approval/internal/approval"
	"github.com/spendflow/expense-approval/internal/core/events"
	"github.com/spendflow/expense-approval/internal/notification"
)

// Repository defines the data access methods for expenses.
type Repository interface {
	Create(expense *Expense) error
	GetByID(id int64) (*Expense, error)
	GetByUserID(userID int64, limit, offset int) ([]*Expense, error)
	GetAllExpenses(limit, offset int) ([]*Expense, error)
	Delete(id int64) error
}

// ChainBuilder decides whether a submission needs approval and by whom.
type ChainBuilder interface {
	BuildChain(submitterID, amountCents int64, costCenterID *int64) (*approval.BuildResult, error)
}

// Service handles the expense submission paths: direct creation and cart
// checkout. Both stamp the expense with its initial approval state.
type Service struct {
	repo     Repository
	builder  ChainBuilder
	users    approval.UserDirectory
	bus      *events.EventBus
	notifier *notification.Trigger
	logger   *slog.Logger
}

func NewService(repo Repository, builder ChainBuilder, users approval.UserDirectory, bus *events.EventBus, notifier *notification.Trigger, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		builder:  builder,
		users:    users,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateExpense submits a single expense. The chain builder decides between
// pending-with-chain and immediate auto-approval.
func (s *Service) CreateExpense(ctx context.Context, userID int64, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", userID)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	build, err := s.builder.BuildChain(userID, dto.AmountCents, dto.CostCenterID)
	if err != nil {
		s.logger.Error("chain build failed", "error", err, "user_id", userID)
		return nil, err
	}

	exp := s.newExpense(userID, dto, build, nil)
	if err := s.repo.Create(exp); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", userID)
		return nil, err
	}

	s.afterCreate(ctx, exp, build)

	s.logger.Info("expense created",
		"expense_id", exp.ID,
		"user_id", userID,
		"amount_cents", dto.AmountCents,
		"status", exp.Status)
	return exp, nil
}

// CheckoutCart turns a punchout cart into one expense per line item. The
// chain is computed once from the cart total and every line gets the same
// chain, so a multi-line cart is approved or rejected as a whole by the same
// approvers.
func (s *Service) CheckoutCart(ctx context.Context, userID int64, dto CheckoutCartDTO) ([]*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("cart validation failed", "error", err, "user_id", userID)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	total := dto.TotalCents()
	build, err := s.builder.BuildChain(userID, total, dto.CostCenterID)
	if err != nil {
		s.logger.Error("chain build failed for cart", "error", err, "user_id", userID, "cart_id", dto.CartID)
		return nil, err
	}

	cartID := dto.CartID
	expenses := make([]*Expense, 0, len(dto.Items))
	for _, item := range dto.Items {
		lineDTO := CreateExpenseDTO{
			AmountCents:  item.AmountCents * int64(item.Quantity),
			Description:  item.Description,
			Category:     item.Category,
			CostCenterID: dto.CostCenterID,
			ExpenseDate:  time.Now(),
		}
		exp := s.newExpense(userID, lineDTO, build, &cartID)
		if err := s.repo.Create(exp); err != nil {
			s.logger.Error("failed to create cart line expense",
				"error", err, "user_id", userID, "cart_id", cartID)
			return nil, err
		}
		expenses = append(expenses, exp)
	}

	// terminal/auto-approve effects fire per line; the approver notification
	// fires once for the whole cart
	for _, exp := range expenses {
		if exp.Status == StatusApproved {
			s.publishAutoApproved(ctx, exp)
		}
	}
	if build.RequiresApproval {
		s.notifyFirstApprover(ctx, expenses[0], build, total)
	} else {
		s.notifySubmitterApproved(ctx, expenses[0])
	}

	s.logger.Info("cart checked out",
		"cart_id", cartID,
		"user_id", userID,
		"line_items", len(expenses),
		"total_cents", total,
		"requires_approval", build.RequiresApproval)
	return expenses, nil
}

// GetExpenseByID retrieves an expense with submitter/manager access control.
func (s *Service) GetExpenseByID(id, userID int64, isManager bool) (*Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !isManager && exp.UserID != userID {
		s.logger.Warn("unauthorized access to expense",
			"expense_id", id, "user_id", userID, "expense_user_id", exp.UserID)
		return nil, ErrUnauthorizedAccess
	}
	return exp, nil
}

func (s *Service) GetUserExpenses(userID int64, limit, offset int) ([]*Expense, error) {
	return s.repo.GetByUserID(userID, limit, offset)
}

func (s *Service) GetAllExpenses(limit, offset int) ([]*Expense, error) {
	return s.repo.GetAllExpenses(limit, offset)
}

// DeleteExpense removes a pending expense owned by the caller. Approved
// expenses are never deleted; rescind is the path for withdrawing instead.
func (s *Service) DeleteExpense(id, userID int64) error {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if exp.UserID != userID {
		return ErrUnauthorizedAccess
	}
	if !exp.CanBeDeleted() {
		return internal.NewValidationError("only pending expenses can be deleted", internal.ErrCodeExpenseNotPending)
	}
	return s.repo.Delete(id)
}

func (s *Service) newExpense(userID int64, dto CreateExpenseDTO, build *approval.BuildResult, cartID *string) *Expense {
	now := time.Now()
	exp := &Expense{
		UserID:       userID,
		AmountCents:  dto.AmountCents,
		Description:  dto.Description,
		Category:     dto.Category,
		CostCenterID: dto.CostCenterID,
		CartID:       cartID,
		ExpenseDate:  dto.ExpenseDate,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if cartID != nil {
		orderStatus := OrderStatusPending
		exp.OrderStatus = &orderStatus
	}

	if build.RequiresApproval {
		exp.Status = StatusPending
		exp.CurrentApprovalLevel = 1
		exp.ApprovalRuleID = build.RuleID
		exp.ApprovalChain = build.Chain
	} else {
		exp.Status = StatusApproved
		exp.ApprovedAt = &now
	}
	return exp
}

// afterCreate fires the submission-time notifications and, for auto-approved
// expenses, the terminal completion event.
func (s *Service) afterCreate(ctx context.Context, exp *Expense, build *approval.BuildResult) {
	if build.RequiresApproval {
		s.notifyFirstApprover(ctx, exp, build, exp.AmountCents)
		return
	}
	s.publishAutoApproved(ctx, exp)
	s.notifySubmitterApproved(ctx, exp)
}

func (s *Service) publishAutoApproved(ctx context.Context, exp *Expense) {
	cartID := ""
	if exp.CartID != nil {
		cartID = *exp.CartID
	}
	s.bus.Publish(ctx, events.NewExpenseApprovedEvent(exp.ID, exp.UserID, exp.AmountCents, true, cartID))
}

func (s *Service) notifyFirstApprover(ctx context.Context, exp *Expense, build *approval.BuildResult, amountCents int64) {
	first := build.Chain.StepAt(1)
	if first == nil {
		return
	}
	s.notifier.Fire(ctx, notification.Notification{
		Kind:           notification.KindApprovalRequested,
		ExpenseID:      exp.ID,
		AmountCents:    amountCents,
		Description:    exp.Description,
		RecipientID:    first.ApproverID,
		RecipientName:  first.ApproverName,
		RecipientEmail: first.ApproverEmail,
		Level:          1,
	})
}

func (s *Service) notifySubmitterApproved(ctx context.Context, exp *Expense) {
	submitter, err := s.users.GetApprover(exp.UserID)
	if err != nil {
		s.logger.Error("submitter lookup failed for notification",
			"expense_id", exp.ID, "user_id", exp.UserID, "error", err)
		return
	}
	s.notifier.Fire(ctx, notification.Notification{
		Kind:           notification.KindExpenseApproved,
		ExpenseID:      exp.ID,
		AmountCents:    exp.AmountCents,
		Description:    exp.Description,
		RecipientID:    submitter.ID,
		RecipientName:  submitter.Name,
		RecipientEmail: submitter.Email,
	})
}
