// Package domain contains the fee template models a school assigns to students.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Frequency controls in which calendar months a fee item is billed.
type Frequency string

const (
	FrequencyOneTime   Frequency = "ONE_TIME"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencySemester  Frequency = "SEMESTER"
	FrequencyYearly    Frequency = "YEARLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyMonthly, FrequencyQuarterly, FrequencySemester, FrequencyYearly:
		return true
	}
	return false
}

// InMonth reports whether a fee item with this frequency is billed in the
// given month. Admission month/year anchors ONE_TIME and the first partial
// year of YEARLY items, so a student admitted after January is still billed
// the yearly fee once.
func (f Frequency) InMonth(month time.Month, year int, admissionMonth time.Month, admissionYear int) bool {
	switch f {
	case FrequencyMonthly:
		return true
	case FrequencyYearly:
		return month == time.January || (month == admissionMonth && year == admissionYear)
	case FrequencyQuarterly:
		return month == time.January || month == time.April || month == time.July || month == time.October
	case FrequencySemester:
		return month == time.January || month == time.July
	case FrequencyOneTime:
		return month == admissionMonth && year == admissionYear
	}
	return false
}

// LateFeeFrequency controls whether an overdue fine is charged once or per
// overdue month.
type LateFeeFrequency string

const (
	LateFeeOneTime LateFeeFrequency = "ONE_TIME"
	LateFeeMonthly LateFeeFrequency = "MONTHLY"
)

type FeeItemStatus string

const (
	FeeItemStatusActive   FeeItemStatus = "ACTIVE"
	FeeItemStatusArchived FeeItemStatus = "ARCHIVED"
)

// FeeStructure is the template of fee items assigned to students of a class
// or program.
type FeeStructure struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	SchoolID     snowflake.ID `json:"school_id" gorm:"not null;index"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	AcademicYear string       `json:"academic_year" gorm:"type:text;not null"`
	Active       bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []FeeItem `json:"items" gorm:"foreignKey:FeeStructureID"`
}

// TableName sets the database table name.
func (FeeStructure) TableName() string { return "fee_structures" }

// FeeItem is one billable template line. Amount is copied onto generated due
// items at generation time; later edits never rewrite existing dues.
type FeeItem struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID       snowflake.ID    `json:"school_id" gorm:"not null;index"`
	FeeStructureID snowflake.ID    `json:"fee_structure_id" gorm:"not null;index"`
	Name           string          `json:"name" gorm:"type:text;not null"`
	Category       string          `json:"category" gorm:"type:text;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Frequency      Frequency       `json:"frequency" gorm:"type:text;not null"`
	Status         FeeItemStatus   `json:"status" gorm:"type:text;not null;default:'ACTIVE'"`

	LateFeeEnabled   bool             `json:"late_fee_enabled" gorm:"not null;default:false"`
	LateFeeAmount    decimal.Decimal  `json:"late_fee_amount" gorm:"type:numeric(12,2);not null;default:0"`
	LateFeeFrequency LateFeeFrequency `json:"late_fee_frequency" gorm:"type:text;not null;default:'ONE_TIME'"`
	LateFeeGraceDays int              `json:"late_fee_grace_days" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FeeItem) TableName() string { return "fee_items" }
