package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountKind classifies where collected money lands.
type AccountKind string

const (
	AccountKindCash        AccountKind = "CASH"
	AccountKindBank        AccountKind = "BANK"
	AccountKindMobileMoney AccountKind = "MOBILE_MONEY"
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindCash, AccountKindBank, AccountKindMobileMoney:
		return true
	}
	return false
}

// FinancialAccount is a destination for collected fees, scoped to one school.
type FinancialAccount struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SchoolID  snowflake.ID `json:"school_id" gorm:"not null;index;uniqueIndex:ux_financial_accounts_school_name,priority:1"`
	Name      string       `json:"name" gorm:"type:text;not null;uniqueIndex:ux_financial_accounts_school_name,priority:2"`
	Kind      AccountKind  `json:"kind" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FinancialAccount) TableName() string { return "financial_accounts" }
