// Package effects runs the side effects of a completed approval: syncing the
// expense into the accounting ledger and placing the marketplace order for
// cart-backed expenses. Effects are independent of each other and of the
// approval transition itself; a failed effect is recorded on the expense and
// never unwinds the approval.
package effects

import (
	"context"
	"log/slog"

	"github.com/spendflow/expense-approval/internal/core/events"
	"github.com/spendflow/expense-approval/internal/expense"
)

// EffectState is the slice of an expense the dispatcher needs to decide which
// effects still apply.
type EffectState struct {
	ExpenseID     int64
	UserID        int64
	AmountCents   int64
	Description   string
	Category      string
	CostCenterID  *int64
	CartID        *string
	OrderStatus   *string
	LedgerSyncRef *string
}

// Store reads effect state and records effect outcomes.
type Store interface {
	GetEffectState(expenseID int64) (*EffectState, error)
	RecordLedgerSync(expenseID int64, ref string) error
	RecordLedgerError(expenseID int64, message string) error
	RecordOrderConfirmed(expenseID int64, poNumber string) (bool, error)
	RecordOrderFailed(expenseID int64) (bool, error)
}

// LedgerClient posts an approved expense to the accounting system and returns
// the ledger's reference id.
type LedgerClient interface {
	SyncExpense(ctx context.Context, state *EffectState) (string, error)
}

// MarketplaceClient places the punchout order behind a cart-backed expense.
type MarketplaceClient interface {
	PlaceOrder(ctx context.Context, cartID string, expenseID int64) error
}

type Dispatcher struct {
	store       Store
	ledger      LedgerClient
	marketplace MarketplaceClient
	logger      *slog.Logger
}

func NewDispatcher(store Store, ledger LedgerClient, marketplace MarketplaceClient, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		ledger:      ledger,
		marketplace: marketplace,
		logger:      logger,
	}
}

// RegisterEventHandlers subscribes the dispatcher to approval completion
// events on the bus.
func (d *Dispatcher) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseApproved, d.handleExpenseApproved)
}

func (d *Dispatcher) handleExpenseApproved(ctx context.Context, event events.Event) error {
	approved, ok := event.(*events.ExpenseApprovedEvent)
	if !ok {
		d.logger.Error("unexpected event payload",
			"event_type", event.EventType(),
			"event_id", event.EventID())
		return nil
	}
	d.Dispatch(ctx, approved.ExpenseID)
	return nil
}

// Dispatch runs every applicable effect for an approved expense. Each effect
// checks its own guard against stored state, so re-dispatching an expense is
// harmless.
func (d *Dispatcher) Dispatch(ctx context.Context, expenseID int64) {
	state, err := d.store.GetEffectState(expenseID)
	if err != nil {
		d.logger.Error("failed to load expense for completion effects",
			"expense_id", expenseID,
			"error", err)
		return
	}

	d.syncLedger(ctx, state)
	d.placeOrder(ctx, state)
}

func (d *Dispatcher) syncLedger(ctx context.Context, state *EffectState) {
	if state.LedgerSyncRef != nil && *state.LedgerSyncRef != "" {
		return
	}

	ref, err := d.ledger.SyncExpense(ctx, state)
	if err != nil {
		d.logger.Error("ledger sync failed",
			"expense_id", state.ExpenseID,
			"error", err)
		if recErr := d.store.RecordLedgerError(state.ExpenseID, err.Error()); recErr != nil {
			d.logger.Error("failed to record ledger sync error",
				"expense_id", state.ExpenseID,
				"error", recErr)
		}
		return
	}

	if err := d.store.RecordLedgerSync(state.ExpenseID, ref); err != nil {
		d.logger.Error("failed to record ledger sync reference",
			"expense_id", state.ExpenseID,
			"ledger_ref", ref,
			"error", err)
		return
	}

	d.logger.Info("expense synced to ledger",
		"expense_id", state.ExpenseID,
		"ledger_ref", ref)
}

func (d *Dispatcher) placeOrder(ctx context.Context, state *EffectState) {
	if state.CartID == nil || *state.CartID == "" {
		return
	}
	if state.OrderStatus == nil || *state.OrderStatus != expense.OrderStatusPending {
		return
	}

	if err := d.marketplace.PlaceOrder(ctx, *state.CartID, state.ExpenseID); err != nil {
		d.logger.Error("marketplace order placement failed",
			"expense_id", state.ExpenseID,
			"cart_id", *state.CartID,
			"error", err)
		if _, recErr := d.store.RecordOrderFailed(state.ExpenseID); recErr != nil {
			d.logger.Error("failed to record order failure",
				"expense_id", state.ExpenseID,
				"error", recErr)
		}
		return
	}

	d.logger.Info("marketplace order submitted",
		"expense_id", state.ExpenseID,
		"cart_id", *state.CartID)
}
