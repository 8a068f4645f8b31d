// Package domain contains exams, their schedules, per-component marks and
// the grade scale used to summarize them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ResultStatus is the publish state of an exam's results. Summaries are only
// student-visible while PUBLISHED; unpublishing reverts visibility for
// corrections and the exam may be published again.
type ResultStatus string

const (
	ResultDraft       ResultStatus = "DRAFT"
	ResultPublished   ResultStatus = "PUBLISHED"
	ResultUnpublished ResultStatus = "UNPUBLISHED"
)

// CanTransition reports whether the publish state machine allows moving from
// s to next.
func (s ResultStatus) CanTransition(next ResultStatus) bool {
	switch s {
	case ResultDraft, ResultUnpublished:
		return next == ResultPublished
	case ResultPublished:
		return next == ResultUnpublished
	}
	return false
}

// Exam is one examination event in a term of an academic year.
type Exam struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	SchoolID     snowflake.ID `json:"school_id" gorm:"not null;index"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	Term         string       `json:"term" gorm:"type:text;not null"`
	AcademicYear string       `json:"academic_year" gorm:"type:text;not null"`
	ResultStatus ResultStatus `json:"result_status" gorm:"type:text;not null;default:'DRAFT'"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Exam) TableName() string { return "exams" }

// ExamSchedule is one (class, subject) sitting of an exam, unique per exam.
type ExamSchedule struct {
	ID       snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID snowflake.ID    `json:"school_id" gorm:"not null;index;uniqueIndex:ux_exam_schedules_subject,priority:1"`
	ExamID   snowflake.ID    `json:"exam_id" gorm:"not null;index;uniqueIndex:ux_exam_schedules_subject,priority:2"`
	ClassID  snowflake.ID    `json:"class_id,string" gorm:"not null;index;uniqueIndex:ux_exam_schedules_subject,priority:3"`
	Subject  string          `json:"subject" gorm:"type:text;not null;uniqueIndex:ux_exam_schedules_subject,priority:4"`
	ExamDate time.Time       `json:"exam_date" gorm:"not null"`
	MaxMarks decimal.Decimal `json:"max_marks" gorm:"type:numeric(6,2);not null"`

	Components []ScheduleComponent `json:"components" gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (ExamSchedule) TableName() string { return "exam_schedules" }

// ScheduleComponent splits a schedule's marks, e.g. written and practical.
type ScheduleComponent struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID   snowflake.ID    `json:"school_id" gorm:"not null;index"`
	ScheduleID snowflake.ID    `json:"schedule_id" gorm:"not null;index"`
	Name       string          `json:"name" gorm:"type:text;not null"`
	MaxMarks   decimal.Decimal `json:"max_marks" gorm:"type:numeric(6,2);not null"`
}

// TableName sets the database table name.
func (ScheduleComponent) TableName() string { return "exam_schedule_components" }

// ComponentResult is the marks one student obtained in one component, unique
// per (component, student). Rows are upserted; every change is audited with
// the old and new marks.
type ComponentResult struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID    snowflake.ID    `json:"school_id" gorm:"not null;index;uniqueIndex:ux_component_results_student,priority:1"`
	ScheduleID  snowflake.ID    `json:"schedule_id" gorm:"not null;index"`
	ComponentID snowflake.ID    `json:"component_id" gorm:"not null;uniqueIndex:ux_component_results_student,priority:2"`
	StudentID   snowflake.ID    `json:"student_id" gorm:"not null;index;uniqueIndex:ux_component_results_student,priority:3"`
	Marks       decimal.Decimal `json:"marks" gorm:"type:numeric(6,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ComponentResult) TableName() string { return "component_results" }

// GradeBand maps a percentage range to a letter grade. Ranges are inclusive
// on both ends; the school's bands should cover 0 through 100 without gaps.
type GradeBand struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID   snowflake.ID    `json:"school_id" gorm:"not null;index"`
	Grade      string          `json:"grade" gorm:"type:text;not null"`
	MinPercent decimal.Decimal `json:"min_percent" gorm:"type:numeric(5,2);not null"`
	MaxPercent decimal.Decimal `json:"max_percent" gorm:"type:numeric(5,2);not null"`
}

// TableName sets the database table name.
func (GradeBand) TableName() string { return "grade_bands" }

// GradeFor returns the band covering percent, or nil when no band matches.
func GradeFor(bands []GradeBand, percent decimal.Decimal) *GradeBand {
	for i := range bands {
		b := bands[i]
		if percent.GreaterThanOrEqual(b.MinPercent) && percent.LessThanOrEqual(b.MaxPercent) {
			return &b
		}
	}
	return nil
}

// ResultSummary is the aggregate over every component result a student has
// in one exam.
type ResultSummary struct {
	ExamID        snowflake.ID    `json:"exam_id"`
	StudentID     snowflake.ID    `json:"student_id"`
	TotalObtained decimal.Decimal `json:"total_obtained"`
	TotalMax      decimal.Decimal `json:"total_max"`
	Percentage    decimal.Decimal `json:"percentage"`
	Grade         string          `json:"grade"`
}
