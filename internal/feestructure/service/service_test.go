package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	"github.com/smallbiznis/campusbooks/internal/feestructure/repository"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&feedomain.FeeStructure{}, &feedomain.FeeItem{}))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)

	return svc, tenantctx.WithSchoolID(context.Background(), node.Generate())
}

func tuitionItem() feedomain.FeeItemInput {
	return feedomain.FeeItemInput{
		Name:      "Tuition",
		Category:  "TUITION",
		Amount:    "1000",
		Frequency: feedomain.FrequencyMonthly,
	}
}

func TestCreate_WithItems(t *testing.T) {
	svc, ctx := newTestService(t)

	structure, err := svc.Create(ctx, feedomain.CreateFeeStructureRequest{
		Name:         "Standard",
		AcademicYear: "2025",
		Items: []feedomain.FeeItemInput{
			tuitionItem(),
			{
				Name:             "Library",
				Category:         "LIBRARY",
				Amount:           "300",
				Frequency:        feedomain.FrequencyYearly,
				LateFeeEnabled:   true,
				LateFeeAmount:    "25",
				LateFeeFrequency: feedomain.LateFeeMonthly,
				LateFeeGraceDays: 5,
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, structure.Items, 2)
	assert.True(t, structure.Active)
	assert.True(t, structure.Items[0].Amount.Equal(decimal.RequireFromString("1000")))
	assert.True(t, structure.Items[1].LateFeeEnabled)
	assert.Equal(t, feedomain.LateFeeMonthly, structure.Items[1].LateFeeFrequency)

	got, err := svc.Get(ctx, structure.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestCreate_InvalidItemRollsBackStructure(t *testing.T) {
	svc, ctx := newTestService(t)

	bad := tuitionItem()
	bad.Amount = "-500"

	_, err := svc.Create(ctx, feedomain.CreateFeeStructureRequest{
		Name:         "Broken",
		AcademicYear: "2025",
		Items:        []feedomain.FeeItemInput{bad},
	})
	require.ErrorIs(t, err, feedomain.ErrInvalidAmount)

	structures, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, structures)
}

func TestCreate_InvalidFrequencyRejected(t *testing.T) {
	svc, ctx := newTestService(t)

	item := tuitionItem()
	item.Frequency = "WEEKLY"

	_, err := svc.Create(ctx, feedomain.CreateFeeStructureRequest{
		Name:         "Standard",
		AcademicYear: "2025",
		Items:        []feedomain.FeeItemInput{item},
	})
	require.ErrorIs(t, err, feedomain.ErrInvalidFrequency)
}

func TestAddItem_And_ArchiveItem(t *testing.T) {
	svc, ctx := newTestService(t)

	structure, err := svc.Create(ctx, feedomain.CreateFeeStructureRequest{
		Name:         "Standard",
		AcademicYear: "2025",
		Items:        []feedomain.FeeItemInput{tuitionItem()},
	})
	require.NoError(t, err)

	item, err := svc.AddItem(ctx, structure.ID, feedomain.FeeItemInput{
		Name:      "Transport",
		Category:  "TRANSPORT",
		Amount:    "450",
		Frequency: feedomain.FrequencyMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, feedomain.FeeItemStatusActive, item.Status)

	require.NoError(t, svc.ArchiveItem(ctx, structure.ID, item.ID))

	got, err := svc.Get(ctx, structure.ID)
	require.NoError(t, err)
	for _, i := range got.Items {
		if i.ID == item.ID {
			assert.Equal(t, feedomain.FeeItemStatusArchived, i.Status)
		}
	}
}

func TestArchiveItem_UnknownItem(t *testing.T) {
	svc, ctx := newTestService(t)

	structure, err := svc.Create(ctx, feedomain.CreateFeeStructureRequest{
		Name:         "Standard",
		AcademicYear: "2025",
		Items:        []feedomain.FeeItemInput{tuitionItem()},
	})
	require.NoError(t, err)

	err = svc.ArchiveItem(ctx, structure.ID, structure.Items[0].ID+1)
	require.ErrorIs(t, err, feedomain.ErrItemNotFound)
}
