package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.FinancialAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO financial_accounts (id, school_id, name, kind, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.SchoolID,
		account.Name,
		account.Kind,
		account.Active,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.FinancialAccount, error) {
	var accounts []domain.FinancialAccount
	err := db.WithContext(ctx).
		Model(&domain.FinancialAccount{}).
		Where("school_id = ?", schoolID).
		Order("name asc").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) FindActiveByIDs(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]domain.FinancialAccount, error) {
	result := make(map[snowflake.ID]domain.FinancialAccount, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var accounts []domain.FinancialAccount
	err := db.WithContext(ctx).
		Model(&domain.FinancialAccount{}).
		Where("school_id = ? AND active = ? AND id IN ?", schoolID, true, ids).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		result[account.ID] = account
	}
	return result, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID, active bool) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE financial_accounts
		 SET active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE school_id = ? AND id = ?`,
		active,
		schoolID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
