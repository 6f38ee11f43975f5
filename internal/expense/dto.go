package expense

import (
	"errors"
	"time"
)

// CreateExpenseDTO is the request payload for submitting a single expense.
type CreateExpenseDTO struct {
	AmountCents  int64     `json:"amount_cents"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	CostCenterID *int64    `json:"cost_center_id,omitempty"`
	ExpenseDate  time.Time `json:"expense_date"`
}

func (dto CreateExpenseDTO) Validate() error {
	if dto.AmountCents <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if dto.Description == "" {
		return errors.New("description is required")
	}
	if len(dto.Description) > 500 {
		return errors.New("description must be less than 500 characters")
	}
	if dto.Category == "" {
		return errors.New("category is required")
	}
	if dto.ExpenseDate.IsZero() {
		return errors.New("expense date is required")
	}
	if dto.ExpenseDate.After(time.Now()) {
		return errors.New("expense date cannot be in the future")
	}
	return nil
}

// CartItemDTO is one line of a procurement cart brought back from a punchout
// session.
type CartItemDTO struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Quantity    int    `json:"quantity"`
}

// CheckoutCartDTO is the request payload for checking out a punchout cart.
// The chain is computed once from the cart total and stamped on every line.
type CheckoutCartDTO struct {
	CartID       string        `json:"cart_id"`
	CostCenterID *int64        `json:"cost_center_id,omitempty"`
	Items        []CartItemDTO `json:"items"`
}

func (dto CheckoutCartDTO) Validate() error {
	if dto.CartID == "" {
		return errors.New("cart_id is required")
	}
	if len(dto.Items) == 0 {
		return errors.New("cart must contain at least one item")
	}
	for _, item := range dto.Items {
		if item.Description == "" {
			return errors.New("every cart item needs a description")
		}
		if item.AmountCents <= 0 {
			return errors.New("every cart item needs a positive amount")
		}
		if item.Quantity < 1 {
			return errors.New("every cart item needs a quantity of at least 1")
		}
	}
	return nil
}

// TotalCents is the amount the approval chain is computed from.
func (dto CheckoutCartDTO) TotalCents() int64 {
	var total int64
	for _, item := range dto.Items {
		total += item.AmountCents * int64(item.Quantity)
	}
	return total
}
