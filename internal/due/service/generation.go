package service

import (
	"context"
	"time"

	"github.com/smallbiznis/campusbooks/internal/cache"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type period struct {
	month time.Month
	year  int
}

// Generate expands the student's fee structure into one StudentDue per
// calendar month from admission through the current month, in its own
// transaction.
func (s *Service) Generate(ctx context.Context, req duedomain.GenerateRequest) (duedomain.GenerateSummary, error) {
	var summary duedomain.GenerateSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		summary, err = s.GenerateIn(ctx, tx, req)
		return err
	})
	if err != nil {
		return duedomain.GenerateSummary{}, err
	}

	s.invalidate(ctx,
		cache.StudentDuesTag(req.SchoolID, req.StudentID),
		cache.SchoolDashboardTag(req.SchoolID),
	)
	return summary, nil
}

// GenerateIn runs the expansion inside a caller-owned transaction. Periods
// whose StudentDue already exists are skipped wholesale, so re-runs are
// no-ops for already-billed months. Callers are responsible for cache
// invalidation after their transaction commits.
func (s *Service) GenerateIn(ctx context.Context, tx *gorm.DB, req duedomain.GenerateRequest) (duedomain.GenerateSummary, error) {
	var summary duedomain.GenerateSummary

	if req.SchoolID == 0 {
		return summary, duedomain.ErrInvalidSchool
	}
	now := s.clock.Now()
	if req.AdmissionDate.IsZero() || req.AdmissionDate.After(now) {
		return summary, duedomain.ErrInvalidAdmissionDate
	}

	feeItems, err := s.feeRepo.ActiveItems(ctx, tx, req.SchoolID, req.FeeStructureID)
	if err != nil {
		return summary, err
	}
	if len(feeItems) == 0 {
		return summary, feedomain.ErrNoActiveItems
	}

	admission := req.AdmissionDate.UTC()
	admissionMonth := admission.Month()
	admissionYear := admission.Year()

	for _, p := range periodsBetween(admission, now) {
		due := &duedomain.StudentDue{
			ID:        s.genID.Generate(),
			SchoolID:  req.SchoolID,
			StudentID: req.StudentID,
			Month:     int(p.month),
			Year:      p.year,
			CreatedAt: now,
		}
		inserted, err := s.repo.InsertStudentDue(ctx, tx, due)
		if err != nil {
			return summary, err
		}
		if !inserted {
			continue
		}
		summary.BucketsCreated++

		for _, feeItem := range feeItems {
			if !feeItem.Frequency.InMonth(p.month, p.year, admissionMonth, admissionYear) {
				continue
			}

			item := duedomain.DueItem{
				ID:             s.genID.Generate(),
				SchoolID:       req.SchoolID,
				StudentDueID:   due.ID,
				FeeItemID:      &feeItem.ID,
				Title:          feeItem.Name,
				Category:       feeItem.Category,
				OriginalAmount: feeItem.Amount,
				FinalAmount:    feeItem.Amount,
				PaidAmount:     decimal.Zero,
				Status:         duedomain.StatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			fine := lateFeeFor(feeItem, p, now)
			if fine.IsPositive() {
				item.FinalAmount = item.FinalAmount.Add(fine)
				item.Status = duedomain.StatusOverdue
			}

			if err := s.repo.InsertDueItem(ctx, tx, &item); err != nil {
				return summary, err
			}
			summary.ItemsCreated++

			if fine.IsPositive() {
				adj, err := duedomain.NewAdjustment(
					s.genID.Generate(),
					req.SchoolID,
					item.ID,
					"Late fee",
					fine,
					duedomain.AdjustmentFine,
					"LATE_FEE",
					"generated for overdue period",
					now,
				)
				if err != nil {
					return summary, err
				}
				if err := s.repo.InsertAdjustment(ctx, tx, &adj); err != nil {
					return summary, err
				}
				summary.FinesApplied++
			}
		}
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordDueGeneration(summary.BucketsCreated)
	}
	s.log.Info("due generation completed",
		zap.String("student_id", req.StudentID.String()),
		zap.Int("buckets", summary.BucketsCreated),
		zap.Int("items", summary.ItemsCreated),
		zap.Int("fines", summary.FinesApplied),
	)
	return summary, nil
}

// periodsBetween lists calendar months from the admission month through the
// month of now, inclusive. Partial months count fully: a student admitted on
// the last day of a month owes that month.
func periodsBetween(admission, now time.Time) []period {
	var periods []period
	y, m := admission.Year(), admission.Month()
	endY, endM := now.Year(), now.Month()
	for y < endY || (y == endY && m <= endM) {
		periods = append(periods, period{month: m, year: y})
		m++
		if m > time.December {
			m = time.January
			y++
		}
	}
	return periods
}

// lateFeeFor computes the fine owed for a period generated retroactively.
// The period's payment deadline is the first day of the following month plus
// the grace window; once passed, a ONE_TIME policy charges the fine once and
// a MONTHLY policy charges it for every calendar month since the period.
func lateFeeFor(feeItem feedomain.FeeItem, p period, now time.Time) decimal.Decimal {
	if !feeItem.LateFeeEnabled || !feeItem.LateFeeAmount.IsPositive() {
		return decimal.Zero
	}

	deadline := time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, feeItem.LateFeeGraceDays)
	if !now.After(deadline) {
		return decimal.Zero
	}

	if feeItem.LateFeeFrequency == feedomain.LateFeeMonthly {
		monthsOverdue := (now.Year()-p.year)*12 + int(now.Month()-p.month)
		if monthsOverdue < 1 {
			monthsOverdue = 1
		}
		return feeItem.LateFeeAmount.Mul(decimal.NewFromInt(int64(monthsOverdue)))
	}
	return feeItem.LateFeeAmount
}
