package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/cache"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyAdjustment attaches a signed modifier to a due item and recomputes
// finalAmount and status against the unchanged paidAmount.
func (s *Service) ApplyAdjustment(ctx context.Context, req duedomain.ApplyAdjustmentRequest) (duedomain.DueItem, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return duedomain.DueItem{}, duedomain.ErrInvalidSchool
	}

	magnitude, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !magnitude.IsPositive() {
		return duedomain.DueItem{}, duedomain.ErrInvalidAmount
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = string(req.Kind)
	}

	var updated duedomain.DueItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindDueItem(ctx, tx, schoolID, req.DueItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return duedomain.ErrDueItemNotFound
		}

		adj, err := duedomain.NewAdjustment(
			s.genID.Generate(),
			schoolID,
			item.ID,
			title,
			magnitude,
			req.Kind,
			strings.TrimSpace(req.Category),
			strings.TrimSpace(req.Reason),
			s.clock.Now(),
		)
		if err != nil {
			return err
		}
		if err := s.repo.InsertAdjustment(ctx, tx, &adj); err != nil {
			return err
		}

		updated, err = s.recomputeItem(ctx, tx, schoolID, item)
		return err
	})
	if err != nil {
		return duedomain.DueItem{}, err
	}

	s.afterAdjustment(ctx, schoolID, updated, string(req.Kind), "due.adjustment_applied", magnitude)
	return updated, nil
}

// CancelAdjustment deactivates an adjustment and recomputes the item the
// same way an application does.
func (s *Service) CancelAdjustment(ctx context.Context, dueItemID, adjustmentID snowflake.ID) (duedomain.DueItem, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return duedomain.DueItem{}, duedomain.ErrInvalidSchool
	}

	var updated duedomain.DueItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindDueItem(ctx, tx, schoolID, dueItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return duedomain.ErrDueItemNotFound
		}

		changed, err := s.repo.SetAdjustmentStatus(ctx, tx, schoolID, dueItemID, adjustmentID, duedomain.AdjustmentCancelled)
		if err != nil {
			return err
		}
		if !changed {
			return duedomain.ErrAdjustmentNotFound
		}

		updated, err = s.recomputeItem(ctx, tx, schoolID, item)
		return err
	})
	if err != nil {
		return duedomain.DueItem{}, err
	}

	s.afterAdjustment(ctx, schoolID, updated, "", "due.adjustment_cancelled", decimal.Zero)
	return updated, nil
}

// recomputeItem rebuilds finalAmount from the active adjustments and derives
// the status, writing through the optimistic version guard.
func (s *Service) recomputeItem(ctx context.Context, tx *gorm.DB, schoolID snowflake.ID, item *duedomain.DueItem) (duedomain.DueItem, error) {
	adjustments, err := s.repo.ActiveAdjustments(ctx, tx, schoolID, item.ID)
	if err != nil {
		return duedomain.DueItem{}, err
	}

	expectedVersion := item.Version
	item.FinalAmount = duedomain.FinalAmountWith(item.OriginalAmount, adjustments)
	item.Status = duedomain.StatusFor(item.PaidAmount, item.FinalAmount, duedomain.HasActiveWaiver(adjustments), item.Status)

	applied, err := s.repo.UpdateDueItemAmounts(ctx, tx, item, expectedVersion)
	if err != nil {
		return duedomain.DueItem{}, err
	}
	if !applied {
		return duedomain.DueItem{}, duedomain.ErrConcurrentModification
	}
	item.Adjustments = adjustments
	return *item, nil
}

func (s *Service) afterAdjustment(ctx context.Context, schoolID snowflake.ID, item duedomain.DueItem, kind, action string, magnitude decimal.Decimal) {
	due, err := s.repo.FindStudentDue(ctx, s.db, schoolID, item.StudentDueID)
	if err == nil && due != nil {
		s.invalidate(ctx,
			cache.StudentDuesTag(schoolID, due.StudentID),
			cache.SchoolDashboardTag(schoolID),
		)
	}

	if kind != "" && s.obsMetrics != nil {
		s.obsMetrics.RecordAdjustment(kind)
	}

	targetID := item.ID.String()
	metadata := map[string]any{
		"final_amount": item.FinalAmount.String(),
		"paid_amount":  item.PaidAmount.String(),
		"status":       string(item.Status),
	}
	if kind != "" {
		metadata["kind"] = kind
		metadata["amount"] = magnitude.String()
	}
	s.audit(ctx, schoolID, action, "due_item", &targetID, metadata)
}
