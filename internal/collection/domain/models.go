// Package domain contains the append-only payment records written by fee
// collection. Rows are never updated; corrections happen through new due
// adjustments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Collection is the header of one atomic payment submission.
type Collection struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID      snowflake.ID    `json:"school_id" gorm:"not null;index"`
	StudentID     snowflake.ID    `json:"student_id" gorm:"not null;index"`
	ReceiptNumber string          `json:"receipt_number" gorm:"type:text;not null;uniqueIndex"`
	Reason        string          `json:"reason" gorm:"type:text"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []CollectionItem `json:"items" gorm:"foreignKey:CollectionID"`
}

// TableName sets the database table name.
func (Collection) TableName() string { return "collections" }

// CollectionItem allocates part of a submission to one due item and one
// financial account.
type CollectionItem struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID     snowflake.ID    `json:"school_id" gorm:"not null;index"`
	CollectionID snowflake.ID    `json:"collection_id" gorm:"not null;index"`
	StudentDueID snowflake.ID    `json:"student_due_id" gorm:"not null;index"`
	DueItemID    snowflake.ID    `json:"due_item_id" gorm:"not null;index"`
	AccountID    snowflake.ID    `json:"account_id" gorm:"not null;index"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CollectionItem) TableName() string { return "collection_items" }
