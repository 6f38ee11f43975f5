package approval

import "log/slog"

// Builder turns an amount and a submitter into either a concrete chain of
// pending steps or the decision that no approval is needed.
type Builder struct {
	matcher  *Matcher
	resolver *Resolver
	logger   *slog.Logger
}

func NewBuilder(matcher *Matcher, resolver *Resolver, logger *slog.Logger) *Builder {
	return &Builder{matcher: matcher, resolver: resolver, logger: logger}
}

// BuildChain decides the approval path for one submission. Auto-approval
// happens when no rule matches, or when the submitter's hierarchy is too
// shallow for the matched rule: employees without a sufficient manager chain
// are never blocked, and a partial chain is never used.
func (b *Builder) BuildChain(submitterID, amountCents int64, costCenterID *int64) (*BuildResult, error) {
	rule, err := b.matcher.FindApplicableRule(amountCents, costCenterID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return &BuildResult{RequiresApproval: false}, nil
	}

	entries, err := b.resolver.ResolveChain(submitterID, rule.LevelsRequired)
	if err != nil {
		return nil, err
	}
	if len(entries) < rule.LevelsRequired {
		b.logger.Info("manager hierarchy too shallow, auto-approving",
			"submitter_id", submitterID,
			"rule_id", rule.ID,
			"levels_required", rule.LevelsRequired,
			"levels_found", len(entries))
		return &BuildResult{RequiresApproval: false}, nil
	}

	chain := make(Chain, 0, len(entries))
	for _, entry := range entries {
		chain = append(chain, Step{
			Level:         entry.Level,
			ApproverID:    entry.ManagerID,
			ApproverName:  entry.ManagerName,
			ApproverEmail: entry.ManagerEmail,
			Status:        StepStatusPending,
		})
	}

	ruleID := rule.ID
	return &BuildResult{
		RequiresApproval: true,
		Chain:            chain,
		RuleID:           &ruleID,
	}, nil
}
