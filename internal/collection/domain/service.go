package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEmptyCollection  = errors.New("empty_collection")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrExceedsRemaining = errors.New("amount_exceeds_remaining")
	ErrStudentMismatch  = errors.New("student_mismatch")
	ErrDueItemNotFound  = errors.New("due_item_not_found")
	ErrCollectionNotFound = errors.New("collection_not_found")
)

// InlineAdjustment is an adjustment applied at collection time, before the
// payment amount is checked against the item's remaining balance.
type InlineAdjustment struct {
	Kind   string `json:"kind" binding:"required,oneof=DISCOUNT FINE WAIVER"`
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// FeeItemPayment pays one due item, optionally adjusting it first.
type FeeItemPayment struct {
	DueItemID   snowflake.ID       `json:"due_item_id" binding:"required"`
	AccountID   snowflake.ID       `json:"account_id" binding:"required"`
	Amount      string             `json:"amount" binding:"required"`
	Adjustments []InlineAdjustment `json:"adjustments"`
}

// MonthCollection groups payments under one student due bucket.
type MonthCollection struct {
	StudentDueID snowflake.ID     `json:"student_due_id" binding:"required"`
	Month        int              `json:"month" binding:"required,min=1,max=12"`
	Year         int              `json:"year" binding:"required"`
	FeeItems     []FeeItemPayment `json:"fee_items" binding:"required,dive"`
}

// CollectRequest is one atomic payment submission covering one or more
// months for a single student.
type CollectRequest struct {
	StudentID        snowflake.ID      `json:"student_id" binding:"required"`
	Reason           string            `json:"reason"`
	MonthCollections []MonthCollection `json:"month_collections" binding:"required,dive"`
}

// CollectResponse reports the persisted collection and per-item outcome.
type CollectResponse struct {
	Collection Collection       `json:"collection"`
	Allocated  decimal.Decimal  `json:"allocated"`
}

// ListFilter narrows the collection history listing.
type ListFilter struct {
	StudentID snowflake.ID
	Limit     int
}

type Service interface {
	Collect(ctx context.Context, req CollectRequest) (*CollectResponse, error)
	Get(ctx context.Context, id snowflake.ID) (*Collection, error)
	List(ctx context.Context, f ListFilter) ([]Collection, error)
}

type Repository interface {
	InsertCollection(ctx context.Context, db *gorm.DB, c *Collection) error
	InsertCollectionItem(ctx context.Context, db *gorm.DB, item *CollectionItem) error
	FindCollection(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*Collection, error)
	ListCollections(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, f ListFilter) ([]Collection, error)
}
