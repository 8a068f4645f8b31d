package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	"gorm.io/gorm"
)

type EnrollRequest struct {
	AdmissionNumber string       `json:"admission_number" binding:"required"`
	FirstName       string       `json:"first_name" binding:"required"`
	LastName        string       `json:"last_name" binding:"required"`
	ClassID         snowflake.ID `json:"class_id,string" binding:"required"`
	SectionID       snowflake.ID `json:"section_id,string"`
	GuardianName    string       `json:"guardian_name"`
	GuardianPhone   string       `json:"guardian_phone"`
	AdmissionDate   string       `json:"admission_date" binding:"required"` // YYYY-MM-DD
	FeeStructureID  snowflake.ID `json:"fee_structure_id,string" binding:"required"`
}

type EnrollResponse struct {
	Student Student                   `json:"student"`
	Dues    duedomain.GenerateSummary `json:"dues"`
}

type Service interface {
	// Enroll creates the student and generates every monthly due in one
	// transaction; a failure anywhere leaves no trace of the student.
	Enroll(ctx context.Context, req EnrollRequest) (EnrollResponse, error)
	Get(ctx context.Context, id snowflake.ID) (Student, error)
	List(ctx context.Context) ([]Student, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, student *Student) error
	Find(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*Student, error)
	List(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]Student, error)
	IDsByClass(ctx context.Context, db *gorm.DB, schoolID, classID snowflake.ID) ([]snowflake.ID, error)
	IDsBySection(ctx context.Context, db *gorm.DB, schoolID, classID, sectionID snowflake.ID) ([]snowflake.ID, error)
}

var (
	ErrInvalidSchool            = errors.New("invalid_school")
	ErrInvalidName              = errors.New("invalid_student_name")
	ErrInvalidAdmissionDate     = errors.New("invalid_admission_date")
	ErrDuplicateAdmissionNumber = errors.New("duplicate_admission_number")
	ErrNotFound                 = errors.New("student_not_found")
)
