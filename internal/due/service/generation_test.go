package service

import (
	"testing"
	"time"

	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_MidMonthAdmissionBackfillsEveryMonth(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
		feeItemSpec{name: "Annual Charge", category: "ANNUAL", amount: "500", frequency: feedomain.FrequencyYearly},
		feeItemSpec{name: "Admission Fee", category: "ADMISSION", amount: "300", frequency: feedomain.FrequencyOneTime},
	)
	admission := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	summary, err := env.svc.Generate(env.ctx, duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.BucketsCreated)
	assert.Equal(t, 5, summary.ItemsCreated)
	assert.Equal(t, 0, summary.FinesApplied)

	january := env.dueItems(t, studentID, 1, 2025)
	require.Len(t, january, 3)
	for _, item := range january {
		assert.Equal(t, duedomain.StatusPending, item.Status)
		assert.True(t, item.FinalAmount.Equal(item.OriginalAmount))
		assert.True(t, item.PaidAmount.IsZero())
	}

	february := env.dueItems(t, studentID, 2, 2025)
	require.Len(t, february, 1)
	assert.Equal(t, "Tuition", february[0].Title)

	march := env.dueItems(t, studentID, 3, 2025)
	require.Len(t, march, 1)
}

func TestGenerate_Idempotent(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
	)
	admission := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	req := duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	}

	first, err := env.svc.Generate(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, first.BucketsCreated)

	second, err := env.svc.Generate(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.BucketsCreated)
	assert.Equal(t, 0, second.ItemsCreated)

	var itemCount int64
	require.NoError(t, env.db.Model(&duedomain.DueItem{}).Count(&itemCount).Error)
	assert.Equal(t, int64(3), itemCount)
}

func TestGenerate_NewPeriodAfterClockAdvance(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
	)
	admission := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	req := duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	}

	_, err := env.svc.Generate(env.ctx, req)
	require.NoError(t, err)

	env.clock.Advance(31 * 24 * time.Hour) // into February

	summary, err := env.svc.Generate(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BucketsCreated)
	assert.Equal(t, 1, summary.ItemsCreated)
}

func TestGenerate_NoActiveFeeItems(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t)
	admission := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	_, err := env.svc.Generate(env.ctx, duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	})
	require.ErrorIs(t, err, feedomain.ErrNoActiveItems)
}

func TestGenerate_AdmissionInFuture(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
	)
	studentID := env.seedStudent(t, structureID, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	_, err := env.svc.Generate(env.ctx, duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, duedomain.ErrInvalidAdmissionDate)
}

func TestGenerate_RetroactivePeriodsAccrueLateFees(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{
			name:             "Tuition",
			category:         "TUITION",
			amount:           "1000",
			frequency:        feedomain.FrequencyMonthly,
			lateFeeAmount:    "50",
			lateFeeFrequency: feedomain.LateFeeMonthly,
			lateFeeGraceDays: 5,
		},
	)
	admission := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	summary, err := env.svc.Generate(env.ctx, duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.BucketsCreated)
	assert.Equal(t, 2, summary.FinesApplied)

	// January deadline was Feb 6; three months overdue by Apr 5.
	january := env.dueItems(t, studentID, 1, 2025)
	require.Len(t, january, 1)
	assert.Equal(t, duedomain.StatusOverdue, january[0].Status)
	assert.True(t, january[0].FinalAmount.Equal(decimal.RequireFromString("1150")),
		"got %s", january[0].FinalAmount)

	february := env.dueItems(t, studentID, 2, 2025)
	require.Len(t, february, 1)
	assert.Equal(t, duedomain.StatusOverdue, february[0].Status)
	assert.True(t, february[0].FinalAmount.Equal(decimal.RequireFromString("1100")))

	// March is inside its grace window, April is current.
	march := env.dueItems(t, studentID, 3, 2025)
	require.Len(t, march, 1)
	assert.Equal(t, duedomain.StatusPending, march[0].Status)
	assert.True(t, march[0].FinalAmount.Equal(decimal.RequireFromString("1000")))
}

func TestGenerate_OneTimeLateFeeChargedOnce(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{
			name:             "Transport",
			category:         "TRANSPORT",
			amount:           "200",
			frequency:        feedomain.FrequencyMonthly,
			lateFeeAmount:    "25",
			lateFeeFrequency: feedomain.LateFeeOneTime,
			lateFeeGraceDays: 0,
		},
	)
	admission := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	_, err := env.svc.Generate(env.ctx, duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	})
	require.NoError(t, err)

	// Months overdue vary but a ONE_TIME policy always charges 25.
	january := env.dueItems(t, studentID, 1, 2025)
	require.Len(t, january, 1)
	assert.True(t, january[0].FinalAmount.Equal(decimal.RequireFromString("225")))

	april := env.dueItems(t, studentID, 4, 2025)
	require.Len(t, april, 1)
	assert.True(t, april[0].FinalAmount.Equal(decimal.RequireFromString("225")))
}
