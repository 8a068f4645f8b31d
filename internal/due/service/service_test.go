package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/campusbooks/internal/account/domain"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	auditrepository "github.com/smallbiznis/campusbooks/internal/audit/repository"
	auditservice "github.com/smallbiznis/campusbooks/internal/audit/service"
	"github.com/smallbiznis/campusbooks/internal/clock"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	"github.com/smallbiznis/campusbooks/internal/due/repository"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	feerepository "github.com/smallbiznis/campusbooks/internal/feestructure/repository"
	studentdomain "github.com/smallbiznis/campusbooks/internal/student/domain"
	studentrepository "github.com/smallbiznis/campusbooks/internal/student/repository"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	svc      *Service
	schoolID snowflake.ID
	ctx      context.Context
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&feedomain.FeeStructure{},
		&feedomain.FeeItem{},
		&studentdomain.Student{},
		&duedomain.StudentDue{},
		&duedomain.DueItem{},
		&duedomain.DueAdjustment{},
		&accountdomain.FinancialAccount{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	logger := zap.NewNop()
	fakeClock := clock.NewFakeClock(now)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := NewService(Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Clock:       fakeClock,
		Repo:        repository.Provide(),
		FeeRepo:     feerepository.Provide(),
		StudentRepo: studentrepository.Provide(),
		AuditSvc:    auditSvc,
	}).(*Service)

	schoolID := node.Generate()
	return &testEnv{
		db:       db,
		node:     node,
		clock:    fakeClock,
		svc:      svc,
		schoolID: schoolID,
		ctx:      tenantctx.WithSchoolID(context.Background(), schoolID),
	}
}

type feeItemSpec struct {
	name      string
	category  string
	amount    string
	frequency feedomain.Frequency

	lateFeeAmount    string
	lateFeeFrequency feedomain.LateFeeFrequency
	lateFeeGraceDays int
}

func (e *testEnv) seedFeeStructure(t *testing.T, items ...feeItemSpec) snowflake.ID {
	t.Helper()

	structure := feedomain.FeeStructure{
		ID:           e.node.Generate(),
		SchoolID:     e.schoolID,
		Name:         "Standard",
		AcademicYear: "2025",
		Active:       true,
	}
	require.NoError(t, e.db.Create(&structure).Error)

	for _, spec := range items {
		item := feedomain.FeeItem{
			ID:             e.node.Generate(),
			SchoolID:       e.schoolID,
			FeeStructureID: structure.ID,
			Name:           spec.name,
			Category:       spec.category,
			Amount:         decimal.RequireFromString(spec.amount),
			Frequency:      spec.frequency,
			Status:         feedomain.FeeItemStatusActive,
		}
		if spec.lateFeeAmount != "" {
			item.LateFeeEnabled = true
			item.LateFeeAmount = decimal.RequireFromString(spec.lateFeeAmount)
			item.LateFeeFrequency = spec.lateFeeFrequency
			item.LateFeeGraceDays = spec.lateFeeGraceDays
		}
		require.NoError(t, e.db.Create(&item).Error)
	}
	return structure.ID
}

func (e *testEnv) seedStudent(t *testing.T, structureID snowflake.ID, admission time.Time) snowflake.ID {
	t.Helper()

	student := studentdomain.Student{
		ID:              e.node.Generate(),
		SchoolID:        e.schoolID,
		AdmissionNumber: e.node.Generate().String(),
		FirstName:       "Asha",
		LastName:        "Patel",
		ClassID:         e.node.Generate(),
		AdmissionDate:   admission,
		FeeStructureID:  structureID,
		Active:          true,
	}
	require.NoError(t, e.db.Create(&student).Error)
	return student.ID
}

func (e *testEnv) dueItems(t *testing.T, studentID snowflake.ID, month, year int) []duedomain.DueItem {
	t.Helper()

	due, err := e.svc.repo.FindStudentDueByPeriod(e.ctx, e.db, e.schoolID, studentID, month, year)
	require.NoError(t, err)
	require.NotNil(t, due)

	var items []duedomain.DueItem
	require.NoError(t, e.db.Where("student_due_id = ?", due.ID).Order("id asc").Find(&items).Error)
	return items
}
