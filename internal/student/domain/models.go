package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Student is an enrolled student. AdmissionDate anchors due generation;
// FeeStructureID names the fee template the student is billed under.
type Student struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	SchoolID        snowflake.ID `json:"school_id" gorm:"not null;index;uniqueIndex:ux_students_admission_no,priority:1"`
	AdmissionNumber string       `json:"admission_number" gorm:"type:text;not null;uniqueIndex:ux_students_admission_no,priority:2"`
	FirstName       string       `json:"first_name" gorm:"type:text;not null"`
	LastName        string       `json:"last_name" gorm:"type:text;not null"`
	ClassID         snowflake.ID `json:"class_id,string" gorm:"not null;index"`
	SectionID       snowflake.ID `json:"section_id,string" gorm:"index"`
	GuardianName    string       `json:"guardian_name" gorm:"type:text"`
	GuardianPhone   string       `json:"guardian_phone" gorm:"type:text"`
	AdmissionDate   time.Time    `json:"admission_date" gorm:"not null"`
	FeeStructureID  snowflake.ID `json:"fee_structure_id,string" gorm:"not null;index"`
	Active          bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Student) TableName() string { return "students" }
