package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type GenerateRequest struct {
	SchoolID       snowflake.ID
	StudentID      snowflake.ID
	FeeStructureID snowflake.ID
	AdmissionDate  time.Time
}

type GenerateSummary struct {
	BucketsCreated int `json:"buckets_created"`
	ItemsCreated   int `json:"items_created"`
	FinesApplied   int `json:"fines_applied"`
}

type ApplyAdjustmentRequest struct {
	DueItemID snowflake.ID
	Title     string         `json:"title" binding:"required"`
	Amount    string         `json:"amount" binding:"required"`
	Kind      AdjustmentKind `json:"kind" binding:"required"`
	Category  string         `json:"category"`
	Reason    string         `json:"reason"`
}

// AddDueTargetType selects which students receive an ad-hoc due item.
type AddDueTargetType string

const (
	TargetClass   AddDueTargetType = "CLASS"
	TargetSection AddDueTargetType = "SECTION"
	TargetStudent AddDueTargetType = "STUDENT"
)

type FeeDetail struct {
	Title       string `json:"title" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Month       int    `json:"month" binding:"required,min=1,max=12"`
	Year        int    `json:"year" binding:"required"`
	Description string `json:"description"`
}

type AddDueRequest struct {
	TargetType AddDueTargetType `json:"target_type" binding:"required"`
	ClassID    snowflake.ID     `json:"class_id,string"`
	SectionID  snowflake.ID     `json:"section_id,string"`
	StudentID  snowflake.ID     `json:"student_id,string"`
	FeeDetail  FeeDetail        `json:"fee_details" binding:"required"`
}

type AddDueSummary struct {
	StudentsTargeted int `json:"students_targeted"`
	ItemsCreated     int `json:"items_created"`
}

type Service interface {
	// Generate runs in its own transaction.
	Generate(ctx context.Context, req GenerateRequest) (GenerateSummary, error)
	// GenerateIn joins a caller-owned transaction so enrollment can create
	// the student and every monthly due atomically.
	GenerateIn(ctx context.Context, tx *gorm.DB, req GenerateRequest) (GenerateSummary, error)

	ApplyAdjustment(ctx context.Context, req ApplyAdjustmentRequest) (DueItem, error)
	CancelAdjustment(ctx context.Context, dueItemID, adjustmentID snowflake.ID) (DueItem, error)

	AddDue(ctx context.Context, req AddDueRequest) (AddDueSummary, error)
	ListStudentDues(ctx context.Context, studentID snowflake.ID) ([]StudentDue, error)
}

type Repository interface {
	// InsertStudentDue is idempotent per (school, student, month, year);
	// false means the period already existed and was left untouched.
	InsertStudentDue(ctx context.Context, db *gorm.DB, due *StudentDue) (bool, error)
	InsertDueItem(ctx context.Context, db *gorm.DB, item *DueItem) error
	InsertAdjustment(ctx context.Context, db *gorm.DB, adj *DueAdjustment) error

	FindStudentDue(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*StudentDue, error)
	FindStudentDueByPeriod(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID, month, year int) (*StudentDue, error)
	FindDueItem(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*DueItem, error)
	FindDueItems(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, ids []snowflake.ID) ([]DueItem, error)
	ListStudentDues(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]StudentDue, error)
	ActiveAdjustments(ctx context.Context, db *gorm.DB, schoolID, dueItemID snowflake.ID) ([]DueAdjustment, error)
	SetAdjustmentStatus(ctx context.Context, db *gorm.DB, schoolID, dueItemID, adjustmentID snowflake.ID, status AdjustmentStatus) (bool, error)

	// UpdateDueItemAmounts writes amounts and status guarded by the version
	// read earlier; false means another writer got there first.
	UpdateDueItemAmounts(ctx context.Context, db *gorm.DB, item *DueItem, expectedVersion int64) (bool, error)
}

var (
	ErrInvalidSchool         = errors.New("invalid_school")
	ErrInvalidAmount         = errors.New("invalid_adjustment_amount")
	ErrInvalidAdjustmentKind = errors.New("invalid_adjustment_kind")
	ErrInvalidAdmissionDate  = errors.New("invalid_admission_date")
	ErrInvalidTarget         = errors.New("invalid_due_target")
	ErrDueItemNotFound       = errors.New("due_item_not_found")
	ErrAdjustmentNotFound    = errors.New("adjustment_not_found")
	ErrStudentDueNotFound    = errors.New("student_due_not_found")
	ErrConcurrentModification = errors.New("due_item_modified_concurrently")
)
