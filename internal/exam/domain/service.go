package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidSchool     = errors.New("invalid_school")
	ErrExamNotFound      = errors.New("exam_not_found")
	ErrScheduleNotFound  = errors.New("schedule_not_found")
	ErrComponentNotFound = errors.New("component_not_found")
	ErrDuplicateSchedule = errors.New("duplicate_schedule")
	ErrInvalidMarks      = errors.New("invalid_marks")
	ErrInvalidGradeBand  = errors.New("invalid_grade_band")
	ErrNoGradeBand       = errors.New("no_grade_band_for_percentage")
	ErrNoResults         = errors.New("no_results_for_exam")
	ErrInvalidTransition = errors.New("invalid_result_status_transition")
	ErrResultsNotPublished = errors.New("results_not_published")
)

type CreateExamRequest struct {
	Name         string `json:"name" binding:"required"`
	Term         string `json:"term" binding:"required"`
	AcademicYear string `json:"academic_year" binding:"required"`
}

type ComponentInput struct {
	Name     string `json:"name" binding:"required"`
	MaxMarks string `json:"max_marks" binding:"required"`
}

type ScheduleInput struct {
	ClassID    snowflake.ID     `json:"class_id,string" binding:"required"`
	Subject    string           `json:"subject" binding:"required"`
	ExamDate   string           `json:"exam_date" binding:"required"` // YYYY-MM-DD
	Components []ComponentInput `json:"components" binding:"required,dive"`
}

type UpsertResultRequest struct {
	ScheduleID  snowflake.ID `json:"schedule_id,string" binding:"required"`
	ComponentID snowflake.ID `json:"component_id,string" binding:"required"`
	StudentID   snowflake.ID `json:"student_id,string" binding:"required"`
	Marks       string       `json:"marks" binding:"required"`
}

type GradeBandInput struct {
	Grade      string `json:"grade" binding:"required"`
	MinPercent string `json:"min_percent" binding:"required"`
	MaxPercent string `json:"max_percent" binding:"required"`
}

type Service interface {
	CreateExam(ctx context.Context, req CreateExamRequest) (Exam, error)
	ListExams(ctx context.Context) ([]Exam, error)

	// CreateSchedules inserts every schedule in one transaction; a duplicate
	// (class, subject) anywhere fails the whole batch.
	CreateSchedules(ctx context.Context, examID snowflake.ID, inputs []ScheduleInput) ([]ExamSchedule, error)
	ListSchedules(ctx context.Context, examID snowflake.ID) ([]ExamSchedule, error)

	UpsertComponentResult(ctx context.Context, req UpsertResultRequest) (ComponentResult, error)

	Summarize(ctx context.Context, studentID, examID snowflake.ID) (ResultSummary, error)
	// PublishedSummary is the student-facing read; it fails unless the
	// exam's results are PUBLISHED.
	PublishedSummary(ctx context.Context, studentID, examID snowflake.ID) (ResultSummary, error)
	SetResultStatus(ctx context.Context, examID snowflake.ID, status ResultStatus) (Exam, error)

	SaveGradeScale(ctx context.Context, bands []GradeBandInput) ([]GradeBand, error)
	GradeScale(ctx context.Context) ([]GradeBand, error)
}

type Repository interface {
	InsertExam(ctx context.Context, db *gorm.DB, exam *Exam) error
	FindExam(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*Exam, error)
	ListExams(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]Exam, error)
	UpdateResultStatus(ctx context.Context, db *gorm.DB, schoolID, examID snowflake.ID, from, to ResultStatus) (bool, error)

	// InsertSchedule is idempotence-free on purpose; a duplicate surfaces as
	// a unique violation the service maps to ErrDuplicateSchedule.
	InsertSchedule(ctx context.Context, db *gorm.DB, schedule *ExamSchedule) error
	InsertComponent(ctx context.Context, db *gorm.DB, component *ScheduleComponent) error
	ListSchedules(ctx context.Context, db *gorm.DB, schoolID, examID snowflake.ID) ([]ExamSchedule, error)
	FindSchedule(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*ExamSchedule, error)
	FindComponent(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*ScheduleComponent, error)

	FindResult(ctx context.Context, db *gorm.DB, schoolID, componentID, studentID snowflake.ID) (*ComponentResult, error)
	InsertResult(ctx context.Context, db *gorm.DB, result *ComponentResult) error
	UpdateResultMarks(ctx context.Context, db *gorm.DB, result *ComponentResult) error
	StudentResults(ctx context.Context, db *gorm.DB, schoolID, examID, studentID snowflake.ID) ([]ComponentResult, error)

	ReplaceGradeBands(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, bands []GradeBand) error
	GradeBands(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]GradeBand, error)
}
