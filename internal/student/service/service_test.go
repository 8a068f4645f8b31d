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
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	duerepository "github.com/smallbiznis/campusbooks/internal/due/repository"
	dueservice "github.com/smallbiznis/campusbooks/internal/due/service"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	feerepository "github.com/smallbiznis/campusbooks/internal/feestructure/repository"
	"github.com/smallbiznis/campusbooks/internal/student/domain"
	"github.com/smallbiznis/campusbooks/internal/student/repository"
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
		&feedomain.FeeStructure{},
		&feedomain.FeeItem{},
		&domain.Student{},
		&duedomain.StudentDue{},
		&duedomain.DueItem{},
		&duedomain.DueAdjustment{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	logger := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	dueSvc := dueservice.NewService(dueservice.Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Clock:       fakeClock,
		Repo:        duerepository.Provide(),
		FeeRepo:     feerepository.Provide(),
		StudentRepo: repository.Provide(),
		AuditSvc:    auditSvc,
	})

	svc := NewService(Params{
		DB:       db,
		Log:      logger,
		GenID:    node,
		Clock:    fakeClock,
		Repo:     repository.Provide(),
		DueSvc:   dueSvc,
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

func (e *testEnv) seedFeeStructure(t *testing.T, withItems bool) snowflake.ID {
	t.Helper()

	structure := feedomain.FeeStructure{
		ID:           e.node.Generate(),
		SchoolID:     e.schoolID,
		Name:         "Standard",
		AcademicYear: "2025",
		Active:       true,
	}
	require.NoError(t, e.db.Create(&structure).Error)

	if withItems {
		require.NoError(t, e.db.Create(&feedomain.FeeItem{
			ID:             e.node.Generate(),
			SchoolID:       e.schoolID,
			FeeStructureID: structure.ID,
			Name:           "Tuition",
			Category:       "TUITION",
			Amount:         decimal.RequireFromString("1000"),
			Frequency:      feedomain.FrequencyMonthly,
			Status:         feedomain.FeeItemStatusActive,
		}).Error)
	}
	return structure.ID
}

func enrollRequest(e *testEnv, structureID snowflake.ID) domain.EnrollRequest {
	return domain.EnrollRequest{
		AdmissionNumber: "ADM-100",
		FirstName:       "Ravi",
		LastName:        "Kumar",
		ClassID:         e.node.Generate(),
		AdmissionDate:   "2025-01-15",
		FeeStructureID:  structureID,
	}
}

func TestEnroll_CreatesStudentAndBackfillsDues(t *testing.T) {
	env := newTestEnv(t)
	structureID := env.seedFeeStructure(t, true)

	resp, err := env.svc.Enroll(env.ctx, enrollRequest(env, structureID))
	require.NoError(t, err)

	assert.Equal(t, "ADM-100", resp.Student.AdmissionNumber)
	assert.True(t, resp.Student.Active)

	// Admission in January, clock in March: one bucket per elapsed month.
	assert.Equal(t, 3, resp.Dues.BucketsCreated)
	assert.Equal(t, 3, resp.Dues.ItemsCreated)

	var dueCount int64
	require.NoError(t, env.db.Model(&duedomain.StudentDue{}).
		Where("student_id = ?", resp.Student.ID).
		Count(&dueCount).Error)
	assert.Equal(t, int64(3), dueCount)
}

func TestEnroll_DuplicateAdmissionNumberRejected(t *testing.T) {
	env := newTestEnv(t)
	structureID := env.seedFeeStructure(t, true)

	_, err := env.svc.Enroll(env.ctx, enrollRequest(env, structureID))
	require.NoError(t, err)

	_, err = env.svc.Enroll(env.ctx, enrollRequest(env, structureID))
	require.ErrorIs(t, err, domain.ErrDuplicateAdmissionNumber)
}

func TestEnroll_InvalidAdmissionDateRejected(t *testing.T) {
	env := newTestEnv(t)
	structureID := env.seedFeeStructure(t, true)

	req := enrollRequest(env, structureID)
	req.AdmissionDate = "15-01-2025"

	_, err := env.svc.Enroll(env.ctx, req)
	require.ErrorIs(t, err, domain.ErrInvalidAdmissionDate)
}

func TestEnroll_NoActiveFeeItemsRollsBackStudent(t *testing.T) {
	env := newTestEnv(t)
	structureID := env.seedFeeStructure(t, false)

	_, err := env.svc.Enroll(env.ctx, enrollRequest(env, structureID))
	require.ErrorIs(t, err, feedomain.ErrNoActiveItems)

	// Due generation failed inside the transaction, so the student row
	// must not exist either.
	var count int64
	require.NoError(t, env.db.Model(&domain.Student{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGet_UnknownStudent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Get(env.ctx, env.node.Generate())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
