package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	auditrepository "github.com/smallbiznis/campusbooks/internal/audit/repository"
	auditservice "github.com/smallbiznis/campusbooks/internal/audit/service"
	"github.com/smallbiznis/campusbooks/internal/clock"
	"github.com/smallbiznis/campusbooks/internal/exam/domain"
	"github.com/smallbiznis/campusbooks/internal/exam/repository"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      *Service
	schoolID snowflake.ID
	ctx      context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Exam{},
		&domain.ExamSchedule{},
		&domain.ScheduleComponent{},
		&domain.ComponentResult{},
		&domain.GradeBand{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	logger := zap.NewNop()
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := NewService(Params{
		DB:       db,
		Log:      logger,
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		AuditSvc: auditSvc,
	}).(*Service)

	schoolID := node.Generate()
	return &testEnv{
		db:       db,
		node:     node,
		svc:      svc,
		schoolID: schoolID,
		ctx:      tenantctx.WithSchoolID(context.Background(), schoolID),
	}
}

func (e *testEnv) createExam(t *testing.T) domain.Exam {
	t.Helper()
	exam, err := e.svc.CreateExam(e.ctx, domain.CreateExamRequest{
		Name:         "Half Yearly",
		Term:         "TERM_1",
		AcademicYear: "2025",
	})
	require.NoError(t, err)
	return exam
}

func (e *testEnv) createSchedule(t *testing.T, examID snowflake.ID, components ...domain.ComponentInput) domain.ExamSchedule {
	t.Helper()
	schedules, err := e.svc.CreateSchedules(e.ctx, examID, []domain.ScheduleInput{
		{
			ClassID:    e.node.Generate(),
			Subject:    "Mathematics",
			ExamDate:   "2025-06-15",
			Components: components,
		},
	})
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	return schedules[0]
}

func (e *testEnv) defaultGradeScale(t *testing.T) {
	t.Helper()
	_, err := e.svc.SaveGradeScale(e.ctx, []domain.GradeBandInput{
		{Grade: "A", MinPercent: "80", MaxPercent: "100"},
		{Grade: "B", MinPercent: "60", MaxPercent: "79.99"},
		{Grade: "C", MinPercent: "40", MaxPercent: "59.99"},
	})
	require.NoError(t, err)
}

func TestCreateSchedules_MaxMarksIsComponentSum(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)

	schedule := env.createSchedule(t, exam.ID,
		domain.ComponentInput{Name: "Theory", MaxMarks: "80"},
		domain.ComponentInput{Name: "Practical", MaxMarks: "20"},
	)

	assert.True(t, schedule.MaxMarks.Equal(decimal.RequireFromString("100")))
	assert.Len(t, schedule.Components, 2)
}

func TestCreateSchedules_DuplicateSubjectRollsBackBatch(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)
	classID := env.node.Generate()

	input := func(subject string) domain.ScheduleInput {
		return domain.ScheduleInput{
			ClassID:    classID,
			Subject:    subject,
			ExamDate:   "2025-06-15",
			Components: []domain.ComponentInput{{Name: "Theory", MaxMarks: "100"}},
		}
	}

	_, err := env.svc.CreateSchedules(env.ctx, exam.ID, []domain.ScheduleInput{input("Science")})
	require.NoError(t, err)

	_, err = env.svc.CreateSchedules(env.ctx, exam.ID, []domain.ScheduleInput{
		input("English"),
		input("Science"),
	})
	require.ErrorIs(t, err, domain.ErrDuplicateSchedule)

	// English must not survive the failed batch.
	var count int64
	require.NoError(t, env.db.Model(&domain.ExamSchedule{}).
		Where("exam_id = ?", exam.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateSchedules_UnknownExam(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateSchedules(env.ctx, env.node.Generate(), []domain.ScheduleInput{
		{
			ClassID:    env.node.Generate(),
			Subject:    "Science",
			ExamDate:   "2025-06-15",
			Components: []domain.ComponentInput{{Name: "Theory", MaxMarks: "100"}},
		},
	})
	require.ErrorIs(t, err, domain.ErrExamNotFound)
}

func TestUpsertComponentResult_InsertThenCorrect(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)
	schedule := env.createSchedule(t, exam.ID, domain.ComponentInput{Name: "Theory", MaxMarks: "100"})
	studentID := env.node.Generate()

	req := domain.UpsertResultRequest{
		ScheduleID:  schedule.ID,
		ComponentID: schedule.Components[0].ID,
		StudentID:   studentID,
		Marks:       "72",
	}

	result, err := env.svc.UpsertComponentResult(env.ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Marks.Equal(decimal.RequireFromString("72")))

	req.Marks = "78"
	corrected, err := env.svc.UpsertComponentResult(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, result.ID, corrected.ID)
	assert.True(t, corrected.Marks.Equal(decimal.RequireFromString("78")))

	// One row per (component, student) regardless of corrections.
	var count int64
	require.NoError(t, env.db.Model(&domain.ComponentResult{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The correction leaves an audit record carrying both marks.
	var audit auditdomain.AuditLog
	require.NoError(t, env.db.First(&audit, "action = ?", "exam.result_corrected").Error)
}

func TestUpsertComponentResult_MarksAboveMaxRejected(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)
	schedule := env.createSchedule(t, exam.ID, domain.ComponentInput{Name: "Theory", MaxMarks: "50"})

	for _, marks := range []string{"50.5", "-1", "x"} {
		_, err := env.svc.UpsertComponentResult(env.ctx, domain.UpsertResultRequest{
			ScheduleID:  schedule.ID,
			ComponentID: schedule.Components[0].ID,
			StudentID:   env.node.Generate(),
			Marks:       marks,
		})
		require.ErrorIs(t, err, domain.ErrInvalidMarks, "marks %q", marks)
	}
}

func TestUpsertComponentResult_ComponentOutsideScheduleRejected(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)
	first := env.createSchedule(t, exam.ID, domain.ComponentInput{Name: "Theory", MaxMarks: "100"})

	schedules, err := env.svc.CreateSchedules(env.ctx, exam.ID, []domain.ScheduleInput{
		{
			ClassID:    env.node.Generate(),
			Subject:    "Science",
			ExamDate:   "2025-06-16",
			Components: []domain.ComponentInput{{Name: "Theory", MaxMarks: "100"}},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.UpsertComponentResult(env.ctx, domain.UpsertResultRequest{
		ScheduleID:  first.ID,
		ComponentID: schedules[0].Components[0].ID,
		StudentID:   env.node.Generate(),
		Marks:       "10",
	})
	require.ErrorIs(t, err, domain.ErrComponentNotFound)
}

func TestSummarize_TotalsAndGrade(t *testing.T) {
	env := newTestEnv(t)
	env.defaultGradeScale(t)
	exam := env.createExam(t)
	schedule := env.createSchedule(t, exam.ID,
		domain.ComponentInput{Name: "Theory", MaxMarks: "80"},
		domain.ComponentInput{Name: "Practical", MaxMarks: "20"},
	)
	studentID := env.node.Generate()

	for i, marks := range []string{"70", "20"} {
		_, err := env.svc.UpsertComponentResult(env.ctx, domain.UpsertResultRequest{
			ScheduleID:  schedule.ID,
			ComponentID: schedule.Components[i].ID,
			StudentID:   studentID,
			Marks:       marks,
		})
		require.NoError(t, err)
	}

	summary, err := env.svc.Summarize(env.ctx, studentID, exam.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalObtained.Equal(decimal.RequireFromString("90")))
	assert.True(t, summary.TotalMax.Equal(decimal.RequireFromString("100")))
	assert.True(t, summary.Percentage.Equal(decimal.RequireFromString("90")))
	assert.Equal(t, "A", summary.Grade)
}

func TestSummarize_NoResults(t *testing.T) {
	env := newTestEnv(t)
	env.defaultGradeScale(t)
	exam := env.createExam(t)

	_, err := env.svc.Summarize(env.ctx, env.node.Generate(), exam.ID)
	require.ErrorIs(t, err, domain.ErrNoResults)
}

func TestSummarize_NoGradeBandCoversPercentage(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)
	schedule := env.createSchedule(t, exam.ID, domain.ComponentInput{Name: "Theory", MaxMarks: "100"})
	studentID := env.node.Generate()

	_, err := env.svc.UpsertComponentResult(env.ctx, domain.UpsertResultRequest{
		ScheduleID:  schedule.ID,
		ComponentID: schedule.Components[0].ID,
		StudentID:   studentID,
		Marks:       "90",
	})
	require.NoError(t, err)

	_, err = env.svc.Summarize(env.ctx, studentID, exam.ID)
	require.ErrorIs(t, err, domain.ErrNoGradeBand)
}

func TestSetResultStatus_PublishAndUnpublish(t *testing.T) {
	env := newTestEnv(t)
	env.defaultGradeScale(t)
	exam := env.createExam(t)
	schedule := env.createSchedule(t, exam.ID, domain.ComponentInput{Name: "Theory", MaxMarks: "100"})
	studentID := env.node.Generate()

	_, err := env.svc.UpsertComponentResult(env.ctx, domain.UpsertResultRequest{
		ScheduleID:  schedule.ID,
		ComponentID: schedule.Components[0].ID,
		StudentID:   studentID,
		Marks:       "85",
	})
	require.NoError(t, err)

	// Draft results are hidden from the student-facing read.
	_, err = env.svc.PublishedSummary(env.ctx, studentID, exam.ID)
	require.ErrorIs(t, err, domain.ErrResultsNotPublished)

	published, err := env.svc.SetResultStatus(env.ctx, exam.ID, domain.ResultPublished)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultPublished, published.ResultStatus)

	summary, err := env.svc.PublishedSummary(env.ctx, studentID, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", summary.Grade)

	_, err = env.svc.SetResultStatus(env.ctx, exam.ID, domain.ResultUnpublished)
	require.NoError(t, err)

	_, err = env.svc.PublishedSummary(env.ctx, studentID, exam.ID)
	require.ErrorIs(t, err, domain.ErrResultsNotPublished)
}

func TestSetResultStatus_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)

	_, err := env.svc.SetResultStatus(env.ctx, exam.ID, domain.ResultDraft)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.svc.SetResultStatus(env.ctx, exam.ID, domain.ResultUnpublished)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSaveGradeScale_InvalidBandRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SaveGradeScale(env.ctx, []domain.GradeBandInput{
		{Grade: "A", MinPercent: "90", MaxPercent: "80"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidGradeBand)
}
