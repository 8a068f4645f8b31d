package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/student/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO students (
			id, school_id, admission_number, first_name, last_name,
			class_id, section_id, guardian_name, guardian_phone,
			admission_date, fee_structure_id, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		student.ID,
		student.SchoolID,
		student.AdmissionNumber,
		student.FirstName,
		student.LastName,
		student.ClassID,
		student.SectionID,
		student.GuardianName,
		student.GuardianPhone,
		student.AdmissionDate,
		student.FeeStructureID,
		student.Active,
		student.CreatedAt,
		student.UpdatedAt,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.Student, error) {
	var student domain.Student
	err := db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.Student, error) {
	var students []domain.Student
	err := db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("admission_number asc").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) IDsByClass(ctx context.Context, db *gorm.DB, schoolID, classID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM students
		 WHERE school_id = ? AND class_id = ? AND active
		 ORDER BY id ASC`,
		schoolID, classID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) IDsBySection(ctx context.Context, db *gorm.DB, schoolID, classID, sectionID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM students
		 WHERE school_id = ? AND class_id = ? AND section_id = ? AND active
		 ORDER BY id ASC`,
		schoolID, classID, sectionID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
