package service

import (
	"testing"
	"time"

	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	studentdomain "github.com/smallbiznis/campusbooks/internal/student/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDue_SingleStudentCreatesBucketOnDemand(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
	)
	studentID := env.seedStudent(t, structureID, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC))

	summary, err := env.svc.AddDue(env.ctx, duedomain.AddDueRequest{
		TargetType: duedomain.TargetStudent,
		StudentID:  studentID,
		FeeDetail: duedomain.FeeDetail{
			Title:    "Science lab breakage",
			Amount:   "250",
			Category: "FINE",
			Month:    2,
			Year:     2025,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StudentsTargeted)
	assert.Equal(t, 1, summary.ItemsCreated)

	items := env.dueItems(t, studentID, 2, 2025)
	require.Len(t, items, 1)
	assert.Equal(t, "Science lab breakage", items[0].Title)
	assert.True(t, items[0].FinalAmount.Equal(decimal.RequireFromString("250")))
}

func TestAddDue_AppendsToExistingBucket(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
	)
	admission := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	studentID := env.seedStudent(t, structureID, admission)

	_, err := env.svc.Generate(env.ctx, duedomain.GenerateRequest{
		SchoolID:       env.schoolID,
		StudentID:      studentID,
		FeeStructureID: structureID,
		AdmissionDate:  admission,
	})
	require.NoError(t, err)

	_, err = env.svc.AddDue(env.ctx, duedomain.AddDueRequest{
		TargetType: duedomain.TargetStudent,
		StudentID:  studentID,
		FeeDetail: duedomain.FeeDetail{
			Title:    "Library fine",
			Amount:   "50",
			Category: "FINE",
			Month:    2,
			Year:     2025,
		},
	})
	require.NoError(t, err)

	items := env.dueItems(t, studentID, 2, 2025)
	require.Len(t, items, 2)

	var dueCount int64
	require.NoError(t, env.db.Model(&duedomain.StudentDue{}).
		Where("student_id = ? AND month = 2 AND year = 2025", studentID).
		Count(&dueCount).Error)
	assert.Equal(t, int64(1), dueCount)
}

func TestAddDue_ClassTargetsEveryActiveStudent(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	structureID := env.seedFeeStructure(t,
		feeItemSpec{name: "Tuition", category: "TUITION", amount: "1000", frequency: feedomain.FrequencyMonthly},
	)

	classID := env.node.Generate()
	admission := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		student := studentdomain.Student{
			ID:              env.node.Generate(),
			SchoolID:        env.schoolID,
			AdmissionNumber: env.node.Generate().String(),
			FirstName:       "Student",
			LastName:        "Test",
			ClassID:         classID,
			AdmissionDate:   admission,
			FeeStructureID:  structureID,
			Active:          true,
		}
		require.NoError(t, env.db.Create(&student).Error)
	}

	summary, err := env.svc.AddDue(env.ctx, duedomain.AddDueRequest{
		TargetType: duedomain.TargetClass,
		ClassID:    classID,
		FeeDetail: duedomain.FeeDetail{
			Title:    "Annual day charge",
			Amount:   "100",
			Category: "EVENT",
			Month:    3,
			Year:     2025,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.StudentsTargeted)
	assert.Equal(t, 3, summary.ItemsCreated)
}

func TestAddDue_InvalidInputs(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))

	_, err := env.svc.AddDue(env.ctx, duedomain.AddDueRequest{
		TargetType: duedomain.TargetStudent,
		StudentID:  env.node.Generate(),
		FeeDetail:  duedomain.FeeDetail{Title: "X", Amount: "-10", Category: "FINE", Month: 2, Year: 2025},
	})
	require.ErrorIs(t, err, duedomain.ErrInvalidAmount)

	_, err = env.svc.AddDue(env.ctx, duedomain.AddDueRequest{
		TargetType: duedomain.AddDueTargetType("SCHOOL"),
		FeeDetail:  duedomain.FeeDetail{Title: "X", Amount: "10", Category: "FINE", Month: 2, Year: 2025},
	})
	require.ErrorIs(t, err, duedomain.ErrInvalidTarget)

	_, err = env.svc.AddDue(env.ctx, duedomain.AddDueRequest{
		TargetType: duedomain.TargetStudent,
		StudentID:  env.node.Generate(),
		FeeDetail:  duedomain.FeeDetail{Title: "X", Amount: "10", Category: "FINE", Month: 2, Year: 2025},
	})
	require.ErrorIs(t, err, studentdomain.ErrNotFound)
}
