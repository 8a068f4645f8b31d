package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	"github.com/smallbiznis/campusbooks/internal/cache"
	"github.com/smallbiznis/campusbooks/internal/clock"
	"github.com/smallbiznis/campusbooks/internal/exam/domain"
	obsmetrics "github.com/smallbiznis/campusbooks/internal/observability/metrics"
	"github.com/smallbiznis/campusbooks/pkg/db"
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
	Repo        domain.Repository
	AuditSvc    auditdomain.Service
	Invalidator cache.Invalidator   `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	auditSvc    auditdomain.Service
	invalidator cache.Invalidator
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("exam.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		auditSvc:    p.AuditSvc,
		invalidator: p.Invalidator,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) CreateExam(ctx context.Context, req domain.CreateExamRequest) (domain.Exam, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.Exam{}, domain.ErrInvalidSchool
	}

	now := s.clock.Now()
	exam := domain.Exam{
		ID:           s.genID.Generate(),
		SchoolID:     schoolID,
		Name:         strings.TrimSpace(req.Name),
		Term:         strings.TrimSpace(req.Term),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		ResultStatus: domain.ResultDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertExam(ctx, s.db, &exam); err != nil {
		return domain.Exam{}, err
	}
	return exam, nil
}

func (s *Service) ListExams(ctx context.Context) ([]domain.Exam, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, domain.ErrInvalidSchool
	}
	return s.repo.ListExams(ctx, s.db, schoolID)
}

// CreateSchedules inserts one schedule per (class, subject) with its
// components in a single transaction. Any duplicate rolls back the batch.
func (s *Service) CreateSchedules(ctx context.Context, examID snowflake.ID, inputs []domain.ScheduleInput) ([]domain.ExamSchedule, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, domain.ErrInvalidSchool
	}

	exam, err := s.repo.FindExam(ctx, s.db, schoolID, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, domain.ErrExamNotFound
	}

	schedules := make([]domain.ExamSchedule, 0, len(inputs))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, in := range inputs {
			examDate, err := time.Parse("2006-01-02", strings.TrimSpace(in.ExamDate))
			if err != nil {
				return domain.ErrScheduleNotFound
			}

			schedule := domain.ExamSchedule{
				ID:       s.genID.Generate(),
				SchoolID: schoolID,
				ExamID:   examID,
				ClassID:  in.ClassID,
				Subject:  strings.TrimSpace(in.Subject),
				ExamDate: examDate,
			}

			total := decimal.Zero
			for _, c := range in.Components {
				maxMarks, err := decimal.NewFromString(strings.TrimSpace(c.MaxMarks))
				if err != nil || !maxMarks.IsPositive() {
					return domain.ErrInvalidMarks
				}
				schedule.Components = append(schedule.Components, domain.ScheduleComponent{
					ID:         s.genID.Generate(),
					SchoolID:   schoolID,
					ScheduleID: schedule.ID,
					Name:       strings.TrimSpace(c.Name),
					MaxMarks:   maxMarks,
				})
				total = total.Add(maxMarks)
			}
			schedule.MaxMarks = total

			if err := s.repo.InsertSchedule(ctx, tx, &schedule); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return domain.ErrDuplicateSchedule
				}
				return err
			}
			for i := range schedule.Components {
				if err := s.repo.InsertComponent(ctx, tx, &schedule.Components[i]); err != nil {
					return err
				}
			}
			schedules = append(schedules, schedule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (s *Service) ListSchedules(ctx context.Context, examID snowflake.ID) ([]domain.ExamSchedule, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, domain.ErrInvalidSchool
	}
	return s.repo.ListSchedules(ctx, s.db, schoolID, examID)
}

// UpsertComponentResult records or corrects a student's marks. Corrections
// keep the old marks in the audit trail together with the editor identity.
func (s *Service) UpsertComponentResult(ctx context.Context, req domain.UpsertResultRequest) (domain.ComponentResult, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.ComponentResult{}, domain.ErrInvalidSchool
	}

	marks, err := decimal.NewFromString(strings.TrimSpace(req.Marks))
	if err != nil || marks.IsNegative() {
		return domain.ComponentResult{}, domain.ErrInvalidMarks
	}

	component, err := s.repo.FindComponent(ctx, s.db, schoolID, req.ComponentID)
	if err != nil {
		return domain.ComponentResult{}, err
	}
	if component == nil || component.ScheduleID != req.ScheduleID {
		return domain.ComponentResult{}, domain.ErrComponentNotFound
	}
	if marks.GreaterThan(component.MaxMarks) {
		return domain.ComponentResult{}, domain.ErrInvalidMarks
	}

	now := s.clock.Now()
	var result domain.ComponentResult
	var oldMarks *decimal.Decimal

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindResult(ctx, tx, schoolID, req.ComponentID, req.StudentID)
		if err != nil {
			return err
		}
		if existing == nil {
			result = domain.ComponentResult{
				ID:          s.genID.Generate(),
				SchoolID:    schoolID,
				ScheduleID:  req.ScheduleID,
				ComponentID: req.ComponentID,
				StudentID:   req.StudentID,
				Marks:       marks,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			return s.repo.InsertResult(ctx, tx, &result)
		}

		prev := existing.Marks
		oldMarks = &prev
		existing.Marks = marks
		existing.UpdatedAt = now
		result = *existing
		return s.repo.UpdateResultMarks(ctx, tx, existing)
	})
	if err != nil {
		return domain.ComponentResult{}, err
	}

	s.afterResultWrite(ctx, schoolID, result, oldMarks)
	return result, nil
}

func (s *Service) afterResultWrite(ctx context.Context, schoolID snowflake.ID, result domain.ComponentResult, oldMarks *decimal.Decimal) {
	if s.invalidator != nil {
		if schedule, err := s.repo.FindSchedule(ctx, s.db, schoolID, result.ScheduleID); err == nil && schedule != nil {
			s.invalidator.Invalidate(ctx, cache.ExamResultsTag(schoolID, schedule.ExamID))
		}
	}

	action := "exam.result_recorded"
	metadata := map[string]any{
		"schedule_id":  result.ScheduleID.String(),
		"component_id": result.ComponentID.String(),
		"student_id":   result.StudentID.String(),
		"new_marks":    result.Marks.String(),
	}
	if oldMarks != nil {
		action = "exam.result_corrected"
		metadata["old_marks"] = oldMarks.String()
		if s.obsMetrics != nil {
			s.obsMetrics.RecordResultCorrection()
		}
	}
	if actorID, ok := tenantctx.ActorID(ctx); ok {
		metadata["editor_id"] = actorID
	}

	if s.auditSvc != nil {
		targetID := result.ID.String()
		if err := s.auditSvc.AuditLog(ctx, &schoolID, "", nil, action, "component_result", &targetID, metadata); err != nil {
			s.log.Warn("failed to write result audit log", zap.Error(err))
		}
	}
}

// Summarize totals every component result the student has in the exam and
// grades the percentage through the school's grade bands.
func (s *Service) Summarize(ctx context.Context, studentID, examID snowflake.ID) (domain.ResultSummary, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.ResultSummary{}, domain.ErrInvalidSchool
	}
	return s.summarize(ctx, schoolID, studentID, examID)
}

// PublishedSummary is the student-facing read and refuses exams whose
// results are not currently published.
func (s *Service) PublishedSummary(ctx context.Context, studentID, examID snowflake.ID) (domain.ResultSummary, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.ResultSummary{}, domain.ErrInvalidSchool
	}

	exam, err := s.repo.FindExam(ctx, s.db, schoolID, examID)
	if err != nil {
		return domain.ResultSummary{}, err
	}
	if exam == nil {
		return domain.ResultSummary{}, domain.ErrExamNotFound
	}
	if exam.ResultStatus != domain.ResultPublished {
		return domain.ResultSummary{}, domain.ErrResultsNotPublished
	}
	return s.summarize(ctx, schoolID, studentID, examID)
}

func (s *Service) summarize(ctx context.Context, schoolID, studentID, examID snowflake.ID) (domain.ResultSummary, error) {
	results, err := s.repo.StudentResults(ctx, s.db, schoolID, examID, studentID)
	if err != nil {
		return domain.ResultSummary{}, err
	}
	if len(results) == 0 {
		return domain.ResultSummary{}, domain.ErrNoResults
	}

	obtained := decimal.Zero
	totalMax := decimal.Zero
	for _, r := range results {
		component, err := s.repo.FindComponent(ctx, s.db, schoolID, r.ComponentID)
		if err != nil {
			return domain.ResultSummary{}, err
		}
		if component == nil {
			return domain.ResultSummary{}, domain.ErrComponentNotFound
		}
		obtained = obtained.Add(r.Marks)
		totalMax = totalMax.Add(component.MaxMarks)
	}
	if totalMax.IsZero() {
		return domain.ResultSummary{}, domain.ErrNoResults
	}

	percentage := obtained.Mul(decimal.NewFromInt(100)).DivRound(totalMax, 2)

	bands, err := s.repo.GradeBands(ctx, s.db, schoolID)
	if err != nil {
		return domain.ResultSummary{}, err
	}
	band := domain.GradeFor(bands, percentage)
	if band == nil {
		return domain.ResultSummary{}, domain.ErrNoGradeBand
	}

	return domain.ResultSummary{
		ExamID:        examID,
		StudentID:     studentID,
		TotalObtained: obtained,
		TotalMax:      totalMax,
		Percentage:    percentage,
		Grade:         band.Grade,
	}, nil
}

// SetResultStatus drives the publish state machine. The transition is
// guarded in SQL against the expected current state so two concurrent
// publishes cannot both succeed.
func (s *Service) SetResultStatus(ctx context.Context, examID snowflake.ID, status domain.ResultStatus) (domain.Exam, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return domain.Exam{}, domain.ErrInvalidSchool
	}

	exam, err := s.repo.FindExam(ctx, s.db, schoolID, examID)
	if err != nil {
		return domain.Exam{}, err
	}
	if exam == nil {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	if !exam.ResultStatus.CanTransition(status) {
		return domain.Exam{}, domain.ErrInvalidTransition
	}

	changed, err := s.repo.UpdateResultStatus(ctx, s.db, schoolID, examID, exam.ResultStatus, status)
	if err != nil {
		return domain.Exam{}, err
	}
	if !changed {
		return domain.Exam{}, domain.ErrInvalidTransition
	}

	targetID := examID.String()
	if s.auditSvc != nil {
		err := s.auditSvc.AuditLog(ctx, &schoolID, "", nil, "exam.result_status_changed", "exam", &targetID, map[string]any{
			"from": string(exam.ResultStatus),
			"to":   string(status),
		})
		if err != nil {
			s.log.Warn("failed to write exam audit log", zap.Error(err))
		}
	}

	exam.ResultStatus = status
	return *exam, nil
}

func (s *Service) SaveGradeScale(ctx context.Context, inputs []domain.GradeBandInput) ([]domain.GradeBand, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, domain.ErrInvalidSchool
	}

	bands := make([]domain.GradeBand, 0, len(inputs))
	for _, in := range inputs {
		minPercent, err := decimal.NewFromString(strings.TrimSpace(in.MinPercent))
		if err != nil {
			return nil, domain.ErrInvalidGradeBand
		}
		maxPercent, err := decimal.NewFromString(strings.TrimSpace(in.MaxPercent))
		if err != nil {
			return nil, domain.ErrInvalidGradeBand
		}
		if minPercent.GreaterThan(maxPercent) || minPercent.IsNegative() {
			return nil, domain.ErrInvalidGradeBand
		}
		bands = append(bands, domain.GradeBand{
			ID:         s.genID.Generate(),
			SchoolID:   schoolID,
			Grade:      strings.TrimSpace(in.Grade),
			MinPercent: minPercent,
			MaxPercent: maxPercent,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceGradeBands(ctx, tx, schoolID, bands)
	})
	if err != nil {
		return nil, err
	}
	return bands, nil
}

func (s *Service) GradeScale(ctx context.Context) ([]domain.GradeBand, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, domain.ErrInvalidSchool
	}
	return s.repo.GradeBands(ctx, s.db, schoolID)
}
