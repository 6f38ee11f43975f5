package rule

import "time"

type ApprovalRule struct {
	ID             int64     `gorm:"primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	MinAmountCents int64     `gorm:"column:min_amount_cents;not null"`
	MaxAmountCents *int64    `gorm:"column:max_amount_cents"`
	CostCenterID   *int64    `gorm:"column:cost_center_id;index"`
	LevelsRequired int       `gorm:"column:levels_required;not null"`
	IsActive       bool      `gorm:"column:is_active;default:true;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ApprovalRule) TableName() string {
	return "approval_rules"
}
