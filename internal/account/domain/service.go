package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateAccountRequest struct {
	Name string      `json:"name" binding:"required"`
	Kind AccountKind `json:"kind" binding:"required"`
}

type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (FinancialAccount, error)
	List(ctx context.Context) ([]FinancialAccount, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *FinancialAccount) error
	List(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]FinancialAccount, error)
	// FindActiveByIDs returns the active accounts among ids; missing or
	// inactive ids are simply absent from the result.
	FindActiveByIDs(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]FinancialAccount, error)
	SetActive(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID, active bool) (bool, error)
}

var (
	ErrInvalidSchool = errors.New("invalid_school")
	ErrInvalidName   = errors.New("invalid_account_name")
	ErrInvalidKind   = errors.New("invalid_account_kind")
	ErrDuplicateName = errors.New("duplicate_account_name")
	ErrNotFound      = errors.New("account_not_found")
)
