package approval

import "log/slog"

// RuleRepository is the read-side access to approval rules the matcher needs.
type RuleRepository interface {
	// FindActiveMatching returns active rules whose band contains the amount,
	// in both the cost-center-specific and global scopes.
	FindActiveMatching(amountCents int64, costCenterID *int64) ([]*Rule, error)
	GetByID(id int64) (*Rule, error)
}

// Matcher finds the single applicable approval rule for an amount. Rules are
// read-mostly reference data, so calls are safe to run concurrently.
type Matcher struct {
	rules  RuleRepository
	logger *slog.Logger
}

func NewMatcher(rules RuleRepository, logger *slog.Logger) *Matcher {
	return &Matcher{rules: rules, logger: logger}
}

// FindApplicableRule returns the matching rule or nil when no rule applies,
// which callers must treat as "no approval required".
//
// Tie-break: a cost-center-scoped rule beats a global one; within the same
// scope the highest minAmount (tightest band) wins; identical-minimum ties
// fall back to the lowest rule id so the pick stays deterministic.
func (m *Matcher) FindApplicableRule(amountCents int64, costCenterID *int64) (*Rule, error) {
	candidates, err := m.rules.FindActiveMatching(amountCents, costCenterID)
	if err != nil {
		m.logger.Error("rule lookup failed", "error", err, "amount_cents", amountCents)
		return nil, err
	}

	var best *Rule
	for _, r := range candidates {
		if !r.IsActive || !r.Matches(amountCents) {
			continue
		}
		if betterMatch(r, best, costCenterID) {
			best = r
		}
	}

	if best == nil {
		m.logger.Debug("no approval rule matched", "amount_cents", amountCents)
		return nil, nil
	}

	m.logger.Debug("approval rule matched",
		"rule_id", best.ID,
		"rule_name", best.Name,
		"levels_required", best.LevelsRequired,
		"amount_cents", amountCents)
	return best, nil
}

func betterMatch(candidate, current *Rule, costCenterID *int64) bool {
	if current == nil {
		return true
	}

	candScoped := isScopedTo(candidate, costCenterID)
	currScoped := isScopedTo(current, costCenterID)
	if candScoped != currScoped {
		return candScoped
	}

	if candidate.MinAmountCents != current.MinAmountCents {
		return candidate.MinAmountCents > current.MinAmountCents
	}

	return candidate.ID < current.ID
}

func isScopedTo(r *Rule, costCenterID *int64) bool {
	return r.CostCenterID != nil && costCenterID != nil && *r.CostCenterID == *costCenterID
}
