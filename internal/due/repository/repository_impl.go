package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/due/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertStudentDue(ctx context.Context, db *gorm.DB, due *domain.StudentDue) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO student_dues (id, school_id, student_id, month, year, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (school_id, student_id, month, year) DO NOTHING`,
		due.ID,
		due.SchoolID,
		due.StudentID,
		due.Month,
		due.Year,
		due.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertDueItem(ctx context.Context, db *gorm.DB, item *domain.DueItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO due_items (
			id, school_id, student_due_id, fee_item_id, title, category,
			original_amount, final_amount, paid_amount, status, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.SchoolID,
		item.StudentDueID,
		item.FeeItemID,
		item.Title,
		item.Category,
		item.OriginalAmount,
		item.FinalAmount,
		item.PaidAmount,
		item.Status,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) InsertAdjustment(ctx context.Context, db *gorm.DB, adj *domain.DueAdjustment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO due_adjustments (
			id, school_id, due_item_id, title, amount, effective_amount,
			kind, status, reason, category, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adj.ID,
		adj.SchoolID,
		adj.DueItemID,
		adj.Title,
		adj.Amount,
		adj.EffectiveAmount,
		adj.Kind,
		adj.Status,
		adj.Reason,
		adj.Category,
		adj.CreatedAt,
		adj.UpdatedAt,
	).Error
}

func (r *repo) FindStudentDue(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.StudentDue, error) {
	var due domain.StudentDue
	err := db.WithContext(ctx).
		Model(&domain.StudentDue{}).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&due).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &due, nil
}

func (r *repo) FindStudentDueByPeriod(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID, month, year int) (*domain.StudentDue, error) {
	var due domain.StudentDue
	err := db.WithContext(ctx).
		Model(&domain.StudentDue{}).
		Where("school_id = ? AND student_id = ? AND month = ? AND year = ?", schoolID, studentID, month, year).
		First(&due).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &due, nil
}

func (r *repo) FindDueItem(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.DueItem, error) {
	var item domain.DueItem
	err := db.WithContext(ctx).
		Model(&domain.DueItem{}).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindDueItems(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, ids []snowflake.ID) ([]domain.DueItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.DueItem
	err := db.WithContext(ctx).
		Model(&domain.DueItem{}).
		Where("school_id = ? AND id IN ?", schoolID, ids).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListStudentDues(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]domain.StudentDue, error) {
	var dues []domain.StudentDue
	err := db.WithContext(ctx).
		Model(&domain.StudentDue{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_items.id asc")
		}).
		Preload("Items.Adjustments", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_adjustments.id asc")
		}).
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("year asc, month asc").
		Find(&dues).Error
	if err != nil {
		return nil, err
	}
	return dues, nil
}

func (r *repo) ActiveAdjustments(ctx context.Context, db *gorm.DB, schoolID, dueItemID snowflake.ID) ([]domain.DueAdjustment, error) {
	var adjustments []domain.DueAdjustment
	err := db.WithContext(ctx).
		Model(&domain.DueAdjustment{}).
		Where("school_id = ? AND due_item_id = ? AND status = ?", schoolID, dueItemID, domain.AdjustmentActive).
		Order("id asc").
		Find(&adjustments).Error
	if err != nil {
		return nil, err
	}
	return adjustments, nil
}

func (r *repo) SetAdjustmentStatus(ctx context.Context, db *gorm.DB, schoolID, dueItemID, adjustmentID snowflake.ID, status domain.AdjustmentStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE due_adjustments
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE school_id = ? AND due_item_id = ? AND id = ?`,
		status,
		schoolID,
		dueItemID,
		adjustmentID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateDueItemAmounts(ctx context.Context, db *gorm.DB, item *domain.DueItem, expectedVersion int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE due_items
		 SET final_amount = ?, paid_amount = ?, status = ?, version = version + 1,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE school_id = ? AND id = ? AND version = ?`,
		item.FinalAmount,
		item.PaidAmount,
		item.Status,
		item.SchoolID,
		item.ID,
		expectedVersion,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	item.Version = expectedVersion + 1
	return true, nil
}
