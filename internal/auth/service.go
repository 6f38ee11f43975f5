package auth

import (
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/spendflow/expense-approval/internal"
)

// UserInfo is the repository view of an account.
type UserInfo struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	Permissions  []string
}

type Repository interface {
	GetByEmail(email string) (*UserInfo, error)
	GetByID(id int64) (*UserInfo, error)
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	repo   Repository
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(repo Repository, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

func (s *Service) Authenticate(dto LoginDTO) (*AuthTokens, error) {
	info, err := s.repo.GetByEmail(dto.Email)
	if err != nil {
		s.logger.Warn("login failed: unknown email", "email", dto.Email)
		return nil, internal.ErrInvalidCredentials
	}
	if !info.IsActive {
		return nil, internal.ErrUserInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(info.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: bad password", "user_id", info.ID)
		return nil, internal.ErrInvalidCredentials
	}

	access, err := s.tokens.GenerateAccessToken(info.ID, info.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(info.ID, info.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue refresh token", err)
	}

	s.logger.Info("user authenticated", "user_id", info.ID)
	return &AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// UserFromToken validates an access token and loads the current user with
// permissions, for the auth middleware.
func (s *Service) UserFromToken(tokenString string) (*User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	info, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}
	if !info.IsActive {
		return nil, internal.ErrUserInactive
	}

	return &User{
		ID:          info.ID,
		Email:       info.Email,
		Name:        info.Name,
		Permissions: info.Permissions,
	}, nil
}
