package user

import (
	"time"

	"github.com/spendflow/expense-approval/internal"
)

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	ManagerID  *int64    `json:"manager_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var ErrUserNotFound = internal.NewNotFoundError("user not found", "USER_NOT_FOUND")
