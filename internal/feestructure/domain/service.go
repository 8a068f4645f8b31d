package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type FeeItemInput struct {
	Name             string           `json:"name" binding:"required"`
	Category         string           `json:"category" binding:"required"`
	Amount           string           `json:"amount" binding:"required"`
	Frequency        Frequency        `json:"frequency" binding:"required"`
	LateFeeEnabled   bool             `json:"late_fee_enabled"`
	LateFeeAmount    string           `json:"late_fee_amount"`
	LateFeeFrequency LateFeeFrequency `json:"late_fee_frequency"`
	LateFeeGraceDays int              `json:"late_fee_grace_days" binding:"gte=0"`
}

type CreateFeeStructureRequest struct {
	Name         string         `json:"name" binding:"required"`
	AcademicYear string         `json:"academic_year" binding:"required"`
	Items        []FeeItemInput `json:"items"`
}

type Service interface {
	Create(ctx context.Context, req CreateFeeStructureRequest) (FeeStructure, error)
	Get(ctx context.Context, id snowflake.ID) (FeeStructure, error)
	List(ctx context.Context) ([]FeeStructure, error)
	AddItem(ctx context.Context, structureID snowflake.ID, input FeeItemInput) (FeeItem, error)
	ArchiveItem(ctx context.Context, structureID, itemID snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, structure *FeeStructure) error
	InsertItem(ctx context.Context, db *gorm.DB, item *FeeItem) error
	Find(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*FeeStructure, error)
	List(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]FeeStructure, error)
	// ActiveItems returns ACTIVE fee items ordered by id so generation runs
	// iterate deterministically.
	ActiveItems(ctx context.Context, db *gorm.DB, schoolID, structureID snowflake.ID) ([]FeeItem, error)
	SetItemStatus(ctx context.Context, db *gorm.DB, schoolID, structureID, itemID snowflake.ID, status FeeItemStatus) (bool, error)
}

var (
	ErrInvalidSchool    = errors.New("invalid_school")
	ErrInvalidName      = errors.New("invalid_fee_name")
	ErrInvalidAmount    = errors.New("invalid_fee_amount")
	ErrInvalidFrequency = errors.New("invalid_fee_frequency")
	ErrNotFound         = errors.New("fee_structure_not_found")
	ErrItemNotFound     = errors.New("fee_item_not_found")
	ErrNoActiveItems    = errors.New("fee_structure_has_no_active_items")
)
