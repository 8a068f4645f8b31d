package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, structure *domain.FeeStructure) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_structures (id, school_id, name, academic_year, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		structure.ID,
		structure.SchoolID,
		structure.Name,
		structure.AcademicYear,
		structure.Active,
		structure.CreatedAt,
		structure.UpdatedAt,
	).Error
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.FeeItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_items (
			id, school_id, fee_structure_id, name, category, amount, frequency, status,
			late_fee_enabled, late_fee_amount, late_fee_frequency, late_fee_grace_days,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.SchoolID,
		item.FeeStructureID,
		item.Name,
		item.Category,
		item.Amount,
		item.Frequency,
		item.Status,
		item.LateFeeEnabled,
		item.LateFeeAmount,
		item.LateFeeFrequency,
		item.LateFeeGraceDays,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.FeeStructure, error) {
	var structure domain.FeeStructure
	err := db.WithContext(ctx).
		Model(&domain.FeeStructure{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("fee_items.id asc")
		}).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&structure).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &structure, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.FeeStructure, error) {
	var structures []domain.FeeStructure
	err := db.WithContext(ctx).
		Model(&domain.FeeStructure{}).
		Where("school_id = ?", schoolID).
		Order("created_at desc").
		Find(&structures).Error
	if err != nil {
		return nil, err
	}
	return structures, nil
}

func (r *repo) ActiveItems(ctx context.Context, db *gorm.DB, schoolID, structureID snowflake.ID) ([]domain.FeeItem, error) {
	var items []domain.FeeItem
	err := db.WithContext(ctx).
		Model(&domain.FeeItem{}).
		Where("school_id = ? AND fee_structure_id = ? AND status = ?", schoolID, structureID, domain.FeeItemStatusActive).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetItemStatus(ctx context.Context, db *gorm.DB, schoolID, structureID, itemID snowflake.ID, status domain.FeeItemStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE fee_items
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE school_id = ? AND fee_structure_id = ? AND id = ?`,
		status,
		schoolID,
		structureID,
		itemID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
