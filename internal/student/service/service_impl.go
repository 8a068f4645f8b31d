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
	"github.com/smallbiznis/campusbooks/internal/student/domain"
	"github.com/smallbiznis/campusbooks/pkg/db"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
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
	Repo        domain.Repository
	DueSvc      duedomain.Service
	AuditSvc    auditdomain.Service
	Invalidator cache.Invalidator `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	dueSvc      duedomain.Service
	auditSvc    auditdomain.Service
	invalidator cache.Invalidator
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("student.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		dueSvc:      p.DueSvc,
		auditSvc:    p.AuditSvc,
		invalidator: p.Invalidator,
	}
}

// Enroll creates the student and backfills dues from the admission month to
// the current month in one transaction.
func (s *Service) Enroll(ctx context.Context, req domain.EnrollRequest) (domain.EnrollResponse, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.EnrollResponse{}, domain.ErrInvalidSchool
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" {
		return domain.EnrollResponse{}, domain.ErrInvalidName
	}

	admissionDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.AdmissionDate))
	if err != nil {
		return domain.EnrollResponse{}, domain.ErrInvalidAdmissionDate
	}

	now := s.clock.Now()
	student := domain.Student{
		ID:              s.genID.Generate(),
		SchoolID:        schoolID,
		AdmissionNumber: strings.TrimSpace(req.AdmissionNumber),
		FirstName:       firstName,
		LastName:        lastName,
		ClassID:         req.ClassID,
		SectionID:       req.SectionID,
		GuardianName:    strings.TrimSpace(req.GuardianName),
		GuardianPhone:   strings.TrimSpace(req.GuardianPhone),
		AdmissionDate:   admissionDate,
		FeeStructureID:  req.FeeStructureID,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var summary duedomain.GenerateSummary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &student); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateAdmissionNumber
			}
			return err
		}

		summary, err = s.dueSvc.GenerateIn(ctx, tx, duedomain.GenerateRequest{
			SchoolID:       schoolID,
			StudentID:      student.ID,
			FeeStructureID: student.FeeStructureID,
			AdmissionDate:  admissionDate,
		})
		return err
	})
	if err != nil {
		return domain.EnrollResponse{}, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx,
			cache.StudentDuesTag(schoolID, student.ID),
			cache.SchoolDashboardTag(schoolID),
		)
	}

	targetID := student.ID.String()
	if s.auditSvc != nil {
		auditErr := s.auditSvc.AuditLog(ctx, &schoolID, "", nil, "student.enrolled", "student", &targetID, map[string]any{
			"admission_number": student.AdmissionNumber,
			"admission_date":   admissionDate.Format("2006-01-02"),
			"buckets_created":  summary.BucketsCreated,
			"items_created":    summary.ItemsCreated,
		})
		if auditErr != nil {
			s.log.Warn("failed to write enrollment audit log", zap.Error(auditErr))
		}
	}

	return domain.EnrollResponse{Student: student, Dues: summary}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Student, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.Student{}, domain.ErrInvalidSchool
	}
	student, err := s.repo.Find(ctx, s.db, schoolID, id)
	if err != nil {
		return domain.Student{}, err
	}
	if student == nil {
		return domain.Student{}, domain.ErrNotFound
	}
	return *student, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Student, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, domain.ErrInvalidSchool
	}
	return s.repo.List(ctx, s.db, schoolID)
}
