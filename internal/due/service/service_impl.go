package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	"github.com/smallbiznis/campusbooks/internal/cache"
	"github.com/smallbiznis/campusbooks/internal/clock"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	obsmetrics "github.com/smallbiznis/campusbooks/internal/observability/metrics"
	studentdomain "github.com/smallbiznis/campusbooks/internal/student/domain"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        duedomain.Repository
	FeeRepo     feedomain.Repository
	StudentRepo studentdomain.Repository
	AuditSvc    auditdomain.Service
	Invalidator cache.Invalidator   `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        duedomain.Repository
	feeRepo     feedomain.Repository
	studentRepo studentdomain.Repository
	auditSvc    auditdomain.Service
	invalidator cache.Invalidator
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) duedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("due.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		feeRepo:     p.FeeRepo,
		studentRepo: p.StudentRepo,
		auditSvc:    p.AuditSvc,
		invalidator: p.Invalidator,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) ListStudentDues(ctx context.Context, studentID snowflake.ID) ([]duedomain.StudentDue, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, duedomain.ErrInvalidSchool
	}
	return s.repo.ListStudentDues(ctx, s.db, schoolID, studentID)
}

// AddDue appends an ad-hoc due item to the named period of every targeted
// student, creating the monthly bucket where it does not exist yet.
func (s *Service) AddDue(ctx context.Context, req duedomain.AddDueRequest) (duedomain.AddDueSummary, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return duedomain.AddDueSummary{}, duedomain.ErrInvalidSchool
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.FeeDetail.Amount))
	if err != nil || !amount.IsPositive() {
		return duedomain.AddDueSummary{}, duedomain.ErrInvalidAmount
	}
	title := strings.TrimSpace(req.FeeDetail.Title)
	if title == "" {
		return duedomain.AddDueSummary{}, duedomain.ErrInvalidTarget
	}
	if req.FeeDetail.Month < 1 || req.FeeDetail.Month > 12 {
		return duedomain.AddDueSummary{}, duedomain.ErrInvalidTarget
	}

	studentIDs, err := s.resolveTargets(ctx, schoolID, req)
	if err != nil {
		return duedomain.AddDueSummary{}, err
	}
	if len(studentIDs) == 0 {
		return duedomain.AddDueSummary{}, duedomain.ErrInvalidTarget
	}

	summary := duedomain.AddDueSummary{StudentsTargeted: len(studentIDs)}
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, studentID := range studentIDs {
			due, err := s.ensureStudentDue(ctx, tx, schoolID, studentID, req.FeeDetail.Month, req.FeeDetail.Year, now)
			if err != nil {
				return err
			}

			item := duedomain.DueItem{
				ID:             s.genID.Generate(),
				SchoolID:       schoolID,
				StudentDueID:   due.ID,
				Title:          title,
				Category:       strings.TrimSpace(req.FeeDetail.Category),
				OriginalAmount: amount,
				FinalAmount:    amount,
				PaidAmount:     decimal.Zero,
				Status:         duedomain.StatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.repo.InsertDueItem(ctx, tx, &item); err != nil {
				return err
			}
			summary.ItemsCreated++
		}
		return nil
	})
	if err != nil {
		return duedomain.AddDueSummary{}, err
	}

	tags := make([]cache.Tag, 0, len(studentIDs)+1)
	tags = append(tags, cache.SchoolDashboardTag(schoolID))
	for _, studentID := range studentIDs {
		tags = append(tags, cache.StudentDuesTag(schoolID, studentID))
	}
	s.invalidate(ctx, tags...)

	targetID := title
	s.audit(ctx, schoolID, "due.item_added", "student_due", &targetID, map[string]any{
		"target_type":       string(req.TargetType),
		"students_targeted": summary.StudentsTargeted,
		"amount":            amount.String(),
		"month":             req.FeeDetail.Month,
		"year":              req.FeeDetail.Year,
	})
	return summary, nil
}

func (s *Service) resolveTargets(ctx context.Context, schoolID snowflake.ID, req duedomain.AddDueRequest) ([]snowflake.ID, error) {
	switch req.TargetType {
	case duedomain.TargetStudent:
		if req.StudentID == 0 {
			return nil, duedomain.ErrInvalidTarget
		}
		student, err := s.studentRepo.Find(ctx, s.db, schoolID, req.StudentID)
		if err != nil {
			return nil, err
		}
		if student == nil {
			return nil, studentdomain.ErrNotFound
		}
		return []snowflake.ID{student.ID}, nil
	case duedomain.TargetSection:
		if req.ClassID == 0 || req.SectionID == 0 {
			return nil, duedomain.ErrInvalidTarget
		}
		return s.studentRepo.IDsBySection(ctx, s.db, schoolID, req.ClassID, req.SectionID)
	case duedomain.TargetClass:
		if req.ClassID == 0 {
			return nil, duedomain.ErrInvalidTarget
		}
		return s.studentRepo.IDsByClass(ctx, s.db, schoolID, req.ClassID)
	default:
		return nil, duedomain.ErrInvalidTarget
	}
}

func (s *Service) ensureStudentDue(ctx context.Context, tx *gorm.DB, schoolID, studentID snowflake.ID, month, year int, now time.Time) (*duedomain.StudentDue, error) {
	due := &duedomain.StudentDue{
		ID:        s.genID.Generate(),
		SchoolID:  schoolID,
		StudentID: studentID,
		Month:     month,
		Year:      year,
		CreatedAt: now,
	}
	inserted, err := s.repo.InsertStudentDue(ctx, tx, due)
	if err != nil {
		return nil, err
	}
	if inserted {
		return due, nil
	}
	existing, err := s.repo.FindStudentDueByPeriod(ctx, tx, schoolID, studentID, month, year)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, duedomain.ErrStudentDueNotFound
	}
	return existing, nil
}

func (s *Service) invalidate(ctx context.Context, tags ...cache.Tag) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(ctx, tags...)
}

func (s *Service) audit(ctx context.Context, schoolID snowflake.ID, action, targetType string, targetID *string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, &schoolID, "", nil, action, targetType, targetID, metadata); err != nil {
		s.log.Warn("failed to write due audit log", zap.String("action", action), zap.Error(err))
	}
}
