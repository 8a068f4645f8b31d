package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/collection/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCollection(ctx context.Context, db *gorm.DB, c *domain.Collection) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO collections (
			id, school_id, student_id, receipt_number, reason, total_amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.SchoolID,
		c.StudentID,
		c.ReceiptNumber,
		c.Reason,
		c.TotalAmount,
		c.CreatedAt,
	).Error
}

func (r *repo) InsertCollectionItem(ctx context.Context, db *gorm.DB, item *domain.CollectionItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO collection_items (
			id, school_id, collection_id, student_due_id, due_item_id,
			account_id, amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.SchoolID,
		item.CollectionID,
		item.StudentDueID,
		item.DueItemID,
		item.AccountID,
		item.Amount,
		item.CreatedAt,
	).Error
}

func (r *repo) FindCollection(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.Collection, error) {
	var c domain.Collection
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("collection_items.id asc")
		}).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) ListCollections(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, f domain.ListFilter) ([]domain.Collection, error) {
	q := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("collection_items.id asc")
		}).
		Where("school_id = ?", schoolID)
	if f.StudentID != 0 {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var collections []domain.Collection
	if err := q.Order("id desc").Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}
