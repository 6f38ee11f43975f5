package rule

import (
	"log/slog"
	"time"

	"github.com/spendflow/expense-approval/internal"
	ruleDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/rule"
)

type RepositoryAPI interface {
	GetAll() ([]*ruleDatamodel.ApprovalRule, error)
	GetByID(id int64) (*ruleDatamodel.ApprovalRule, error)
	Create(rule *ruleDatamodel.ApprovalRule) error
	Update(rule *ruleDatamodel.ApprovalRule) error
	Delete(id int64) error
	CountExpensesReferencing(ruleID int64) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetAllRules() ([]*ApprovalRule, error) {
	rows, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to load approval rules", "error", err)
		return nil, err
	}

	rules := make([]*ApprovalRule, len(rows))
	for i, row := range rows {
		rules[i] = FromDataModel(row)
	}
	return rules, nil
}

func (s *Service) GetRuleByID(id int64) (*ApprovalRule, error) {
	row, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.NewNotFoundError("approval rule not found", internal.ErrCodeRuleNotFound)
	}
	return FromDataModel(row), nil
}

func (s *Service) CreateRule(dto *CreateRuleDTO) (*ApprovalRule, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	isActive := true
	if dto.IsActive != nil {
		isActive = *dto.IsActive
	}

	candidate := &ApprovalRule{
		Name:           dto.Name,
		MinAmountCents: dto.MinAmountCents,
		MaxAmountCents: dto.MaxAmountCents,
		CostCenterID:   dto.CostCenterID,
		LevelsRequired: dto.LevelsRequired,
		IsActive:       isActive,
	}

	if candidate.IsActive {
		if err := s.checkOverlap(candidate, 0); err != nil {
			return nil, err
		}
	}

	row := candidate.ToDataModel()
	if err := s.repo.Create(row); err != nil {
		s.logger.Error("failed to create approval rule", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("approval rule created",
		"rule_id", row.ID,
		"min_amount_cents", row.MinAmountCents,
		"levels_required", row.LevelsRequired)

	return FromDataModel(row), nil
}

func (s *Service) UpdateRule(id int64, dto *UpdateRuleDTO) (*ApprovalRule, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.GetRuleByID(id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		existing.Name = *dto.Name
	}
	if dto.MinAmountCents != nil {
		existing.MinAmountCents = *dto.MinAmountCents
	}
	if dto.MaxAmountCents != nil {
		existing.MaxAmountCents = dto.MaxAmountCents
	}
	if dto.CostCenterID != nil {
		existing.CostCenterID = dto.CostCenterID
	}
	if dto.LevelsRequired != nil {
		existing.LevelsRequired = *dto.LevelsRequired
	}
	if dto.IsActive != nil {
		existing.IsActive = *dto.IsActive
	}

	if existing.MaxAmountCents != nil && *existing.MaxAmountCents < existing.MinAmountCents {
		return nil, internal.NewValidationFieldError("max_amount_cents", "maximum amount cannot be below minimum amount", internal.ErrCodeInvalidAmount)
	}

	if existing.IsActive {
		if err := s.checkOverlap(existing, id); err != nil {
			return nil, err
		}
	}

	existing.UpdatedAt = time.Now()
	row := existing.ToDataModel()
	if err := s.repo.Update(row); err != nil {
		s.logger.Error("failed to update approval rule", "error", err, "rule_id", id)
		return nil, err
	}

	s.logger.Info("approval rule updated", "rule_id", id)
	return FromDataModel(row), nil
}

// DeleteRule removes a rule unless expenses still reference it. Referenced
// rules should be deactivated instead so historical chains keep their rule id.
func (s *Service) DeleteRule(id int64) error {
	if _, err := s.GetRuleByID(id); err != nil {
		return err
	}

	count, err := s.repo.CountExpensesReferencing(id)
	if err != nil {
		s.logger.Error("failed to count expenses referencing rule", "error", err, "rule_id", id)
		return err
	}
	if count > 0 {
		return internal.NewConflictError("rule is referenced by existing expenses, deactivate it instead", internal.ErrCodeRuleReferenced)
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete approval rule", "error", err, "rule_id", id)
		return err
	}

	s.logger.Info("approval rule deleted", "rule_id", id)
	return nil
}

// checkOverlap rejects an active rule whose amount range collides with
// another active rule in the same cost-center scope. Global and scoped rules
// may overlap since scoped rules win at match time.
func (s *Service) checkOverlap(candidate *ApprovalRule, excludeID int64) error {
	rows, err := s.repo.GetAll()
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.ID == excludeID || !row.IsActive {
			continue
		}
		other := FromDataModel(row)
		if candidate.Overlaps(other) {
			s.logger.Warn("approval rule overlap rejected",
				"candidate_min", candidate.MinAmountCents,
				"conflicting_rule_id", other.ID)
			return internal.NewConflictError("amount range overlaps an existing active rule", internal.ErrCodeRuleOverlap)
		}
	}
	return nil
}
