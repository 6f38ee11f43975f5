package user

import (
	"log/slog"

	"github.com/spendflow/expense-approval/internal/approval"
)

type Repository interface {
	GetByID(id int64) (*User, error)
}

// Service exposes user reads, including the reporting-hierarchy view the
// approval resolver walks.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, err
	}
	return u, nil
}

// GetApprover implements approval.UserDirectory.
func (s *Service) GetApprover(userID int64) (*approval.Approver, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return &approval.Approver{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		ManagerID: u.ManagerID,
		IsActive:  u.IsActive,
	}, nil
}
