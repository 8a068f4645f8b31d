// Package domain contains the due ledger models: monthly due buckets, their
// billable items and the signed adjustments applied to them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DueStatus is derived from paidAmount against finalAmount and never set
// directly by callers.
type DueStatus string

const (
	StatusPending DueStatus = "PENDING"
	StatusPartial DueStatus = "PARTIAL"
	StatusPaid    DueStatus = "PAID"
	StatusOverdue DueStatus = "OVERDUE"
	StatusWaived  DueStatus = "WAIVED"
)

// StatusFor recomputes an item's status. current is consulted only to keep
// OVERDUE sticky while nothing has been paid; waiver marks items whose
// finalAmount was driven to zero by a waiver before any payment.
func StatusFor(paid, final decimal.Decimal, waiver bool, current DueStatus) DueStatus {
	switch {
	case paid.IsZero() && final.IsZero() && waiver:
		return StatusWaived
	case paid.GreaterThanOrEqual(final):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	case current == StatusOverdue:
		return StatusOverdue
	default:
		return StatusPending
	}
}

// AdjustmentKind determines the sign of an adjustment's effective amount.
type AdjustmentKind string

const (
	AdjustmentDiscount AdjustmentKind = "DISCOUNT"
	AdjustmentWaiver   AdjustmentKind = "WAIVER"
	AdjustmentFine     AdjustmentKind = "FINE"
)

func (k AdjustmentKind) Valid() bool {
	switch k {
	case AdjustmentDiscount, AdjustmentWaiver, AdjustmentFine:
		return true
	}
	return false
}

type AdjustmentStatus string

const (
	AdjustmentActive    AdjustmentStatus = "ACTIVE"
	AdjustmentCancelled AdjustmentStatus = "CANCELLED"
)

// StudentDue is the monthly bucket of due items for one student, unique per
// (school, student, month, year).
type StudentDue struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SchoolID  snowflake.ID `json:"school_id" gorm:"not null;index;uniqueIndex:ux_student_dues_period,priority:1"`
	StudentID snowflake.ID `json:"student_id" gorm:"not null;index;uniqueIndex:ux_student_dues_period,priority:2"`
	Month     int          `json:"month" gorm:"not null;uniqueIndex:ux_student_dues_period,priority:3"`
	Year      int          `json:"year" gorm:"not null;uniqueIndex:ux_student_dues_period,priority:4"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []DueItem `json:"items" gorm:"foreignKey:StudentDueID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (StudentDue) TableName() string { return "student_dues" }

// DueItem is one billable line. FinalAmount is always OriginalAmount plus the
// sum of active adjustment effective amounts; PaidAmount only ever grows.
// Version guards the collection path against concurrent partial payments.
type DueItem struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchoolID       snowflake.ID    `json:"school_id" gorm:"not null;index"`
	StudentDueID   snowflake.ID    `json:"student_due_id" gorm:"not null;index"`
	FeeItemID      *snowflake.ID   `json:"fee_item_id" gorm:"index"`
	Title          string          `json:"title" gorm:"type:text;not null"`
	Category       string          `json:"category" gorm:"type:text;not null"`
	OriginalAmount decimal.Decimal `json:"original_amount" gorm:"type:numeric(12,2);not null"`
	FinalAmount    decimal.Decimal `json:"final_amount" gorm:"type:numeric(12,2);not null"`
	PaidAmount     decimal.Decimal `json:"paid_amount" gorm:"type:numeric(12,2);not null;default:0"`
	Status         DueStatus       `json:"status" gorm:"type:text;not null;default:'PENDING'"`
	Version        int64           `json:"version" gorm:"not null;default:0"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Adjustments []DueAdjustment `json:"adjustments" gorm:"foreignKey:DueItemID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (DueItem) TableName() string { return "due_items" }

// Remaining is finalAmount minus paidAmount, floored at zero.
func (i DueItem) Remaining() decimal.Decimal {
	remaining := i.FinalAmount.Sub(i.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// DueAdjustment is a signed modifier on a due item. EffectiveAmount carries
// the sign fixed at creation time; Amount stays the positive magnitude shown
// to users.
type DueAdjustment struct {
	ID              snowflake.ID     `json:"id" gorm:"primaryKey"`
	SchoolID        snowflake.ID     `json:"school_id" gorm:"not null;index"`
	DueItemID       snowflake.ID     `json:"due_item_id" gorm:"not null;index"`
	Title           string           `json:"title" gorm:"type:text;not null"`
	Amount          decimal.Decimal  `json:"amount" gorm:"type:numeric(12,2);not null"`
	EffectiveAmount decimal.Decimal  `json:"effective_amount" gorm:"type:numeric(12,2);not null"`
	Kind            AdjustmentKind   `json:"kind" gorm:"type:text;not null"`
	Status          AdjustmentStatus `json:"status" gorm:"type:text;not null;default:'ACTIVE'"`
	Reason          string           `json:"reason" gorm:"type:text"`
	Category        string           `json:"category" gorm:"type:text"`
	CreatedAt       time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (DueAdjustment) TableName() string { return "due_adjustments" }

// NewAdjustment builds an ACTIVE adjustment with the sign derived from kind.
// Magnitude must be strictly positive; direction is never supplied by callers.
func NewAdjustment(id, schoolID, dueItemID snowflake.ID, title string, magnitude decimal.Decimal, kind AdjustmentKind, category, reason string, now time.Time) (DueAdjustment, error) {
	if !kind.Valid() {
		return DueAdjustment{}, ErrInvalidAdjustmentKind
	}
	if !magnitude.IsPositive() {
		return DueAdjustment{}, ErrInvalidAmount
	}

	effective := magnitude
	if kind == AdjustmentDiscount || kind == AdjustmentWaiver {
		effective = magnitude.Neg()
	}

	return DueAdjustment{
		ID:              id,
		SchoolID:        schoolID,
		DueItemID:       dueItemID,
		Title:           title,
		Amount:          magnitude,
		EffectiveAmount: effective,
		Kind:            kind,
		Status:          AdjustmentActive,
		Reason:          reason,
		Category:        category,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// FinalAmountWith derives finalAmount from the original amount and the
// active adjustments, floored at zero so a generous waiver cannot leave a
// negative balance.
func FinalAmountWith(original decimal.Decimal, adjustments []DueAdjustment) decimal.Decimal {
	final := original
	for _, adj := range adjustments {
		if adj.Status != AdjustmentActive {
			continue
		}
		final = final.Add(adj.EffectiveAmount)
	}
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// HasActiveWaiver reports whether any active adjustment is a waiver.
func HasActiveWaiver(adjustments []DueAdjustment) bool {
	for _, adj := range adjustments {
		if adj.Status == AdjustmentActive && adj.Kind == AdjustmentWaiver {
			return true
		}
	}
	return false
}
