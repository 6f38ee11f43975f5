package approval

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spendflow/expense-approval/internal"
)

// Step statuses. Steps are decided strictly in ascending level order; a
// rejected step terminates the whole chain and later steps stay pending.
const (
	StepStatusPending  = "pending"
	StepStatusApproved = "approved"
	StepStatusRejected = "rejected"
)

// Expense statuses as seen by the state machine.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// RescindReason is stamped when a submitter withdraws a pending expense.
const RescindReason = "rescinded by submitter"

var (
	ErrExpenseNotFound    = internal.NewNotFoundError("no pending expense with this id", internal.ErrCodeExpenseNotFound)
	ErrExpenseNotPending  = internal.NewValidationError("expense is not pending approval", internal.ErrCodeExpenseNotPending)
	ErrNotCurrentApprover = internal.NewForbiddenError("only the approver at the current level may act", internal.ErrCodeNotCurrentApprover)
	ErrNotSubmitter       = internal.NewForbiddenError("only the original submitter may rescind", internal.ErrCodeNotSubmitter)
	ErrDecisionConflict   = internal.NewForbiddenError("another decision was recorded first", internal.ErrCodeDecisionConflict)
	ErrChainCorrupt       = internal.NewInconsistentStateError("approval chain is missing or malformed", internal.ErrCodeChainCorrupt)
	ErrCommentRequired    = internal.NewValidationFieldError("comments", "comments are required when rejecting", internal.ErrCodeMissingComment)
	ErrRuleNotFound       = internal.NewNotFoundError("approval rule not found", internal.ErrCodeRuleNotFound)
)

// Rule is the domain view of an approval rule: an inclusive amount band,
// optionally scoped to a cost center, mapped to a required approver depth.
type Rule struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	MinAmountCents int64  `json:"min_amount_cents"`
	MaxAmountCents *int64 `json:"max_amount_cents,omitempty"`
	CostCenterID   *int64 `json:"cost_center_id,omitempty"`
	LevelsRequired int    `json:"levels_required"`
	IsActive       bool   `json:"is_active"`
}

// Matches reports whether amount falls inside the rule's band. Scope is the
// matcher's concern, not the rule's.
func (r *Rule) Matches(amountCents int64) bool {
	if amountCents < r.MinAmountCents {
		return false
	}
	if r.MaxAmountCents != nil && amountCents > *r.MaxAmountCents {
		return false
	}
	return true
}

// ManagerChainEntry is one hop of the reporting hierarchy, level 1 being the
// submitter's direct manager. Never persisted; becomes a Step.
type ManagerChainEntry struct {
	Level        int
	ManagerID    int64
	ManagerName  string
	ManagerEmail string
}

// Step is one element of an expense's approval chain, stored as a JSON
// sequence embedded with the expense row.
type Step struct {
	Level         int        `json:"level"`
	ApproverID    int64      `json:"approver_id"`
	ApproverName  string     `json:"approver_name"`
	ApproverEmail string     `json:"approver_email"`
	Status        string     `json:"status"`
	DecidedBy     *int64     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	Comments      *string    `json:"comments,omitempty"`
}

type Chain []Step

// Validate rejects chains with gaps, duplicate levels, or a missing level 1.
// A stored chain is never trusted on read.
func (c Chain) Validate() error {
	if len(c) == 0 {
		return errors.New("chain is empty")
	}
	for i, step := range c {
		if step.Level != i+1 {
			return errors.New("chain levels must ascend from 1 without gaps")
		}
		switch step.Status {
		case StepStatusPending, StepStatusApproved, StepStatusRejected:
		default:
			return errors.New("unknown step status " + step.Status)
		}
	}
	return nil
}

// StepAt returns the step at the given 1-based level.
func (c Chain) StepAt(level int) *Step {
	if level < 1 || level > len(c) {
		return nil
	}
	return &c[level-1]
}

func (c Chain) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeChain parses and validates a stored chain blob.
func DecodeChain(raw []byte) (Chain, error) {
	if len(raw) == 0 {
		return nil, errors.New("chain is absent")
	}
	var c Chain
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// BuildResult is the chain builder's verdict for one submission.
type BuildResult struct {
	RequiresApproval bool   `json:"requires_approval"`
	Chain            Chain  `json:"chain,omitempty"`
	RuleID           *int64 `json:"rule_id,omitempty"`
}

// Approver is the directory view of a user needed to walk the hierarchy.
type Approver struct {
	ID        int64
	Name      string
	Email     string
	ManagerID *int64
	IsActive  bool
}
