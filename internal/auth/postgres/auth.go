package postgres

import (
	"gorm.io/gorm"

	"github.com/spendflow/expense-approval/internal"
	"github.com/spendflow/expense-approval/internal/auth"
	userDatamodel "github.com/spendflow/expense-approval/internal/core/datamodel/user"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.Repository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) GetByEmail(email string) (*auth.UserInfo, error) {
	var u userDatamodel.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, err
	}
	return r.toUserInfo(&u)
}

func (r *AuthRepository) GetByID(id int64) (*auth.UserInfo, error) {
	var u userDatamodel.User
	if err := r.db.Where("id = ?", id).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	return r.toUserInfo(&u)
}

func (r *AuthRepository) toUserInfo(u *userDatamodel.User) (*auth.UserInfo, error) {
	var permissions []string
	err := r.db.Model(&userDatamodel.Permission{}).
		Select("permissions.name").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", u.ID).
		Pluck("permissions.name", &permissions).Error
	if err != nil {
		return nil, err
	}

	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		Permissions:  permissions,
	}, nil
}
