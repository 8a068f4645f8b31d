package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/campusbooks/internal/account/domain"
	"github.com/smallbiznis/campusbooks/internal/account/repository"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, context.Context, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&accountdomain.FinancialAccount{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)

	ctx := tenantctx.WithSchoolID(context.Background(), node.Generate())
	return svc, ctx, node
}

func TestCreate_And_List(t *testing.T) {
	svc, ctx, _ := newTestService(t)

	account, err := svc.Create(ctx, accountdomain.CreateAccountRequest{
		Name: "  School Cash  ",
		Kind: accountdomain.AccountKindCash,
	})
	require.NoError(t, err)
	assert.Equal(t, "School Cash", account.Name)
	assert.True(t, account.Active)

	accounts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestCreate_DuplicateNameRejected(t *testing.T) {
	svc, ctx, _ := newTestService(t)

	req := accountdomain.CreateAccountRequest{Name: "Bank", Kind: accountdomain.AccountKindBank}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, accountdomain.ErrDuplicateName)
}

func TestCreate_InvalidInputs(t *testing.T) {
	svc, ctx, _ := newTestService(t)

	_, err := svc.Create(ctx, accountdomain.CreateAccountRequest{Name: "  ", Kind: accountdomain.AccountKindCash})
	require.ErrorIs(t, err, accountdomain.ErrInvalidName)

	_, err = svc.Create(ctx, accountdomain.CreateAccountRequest{Name: "Till", Kind: "PAYPAL"})
	require.ErrorIs(t, err, accountdomain.ErrInvalidKind)
}

func TestDeactivate(t *testing.T) {
	svc, ctx, node := newTestService(t)

	account, err := svc.Create(ctx, accountdomain.CreateAccountRequest{
		Name: "Mobile", Kind: accountdomain.AccountKindMobileMoney,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, account.ID))

	accounts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.False(t, accounts[0].Active)

	require.ErrorIs(t, svc.Deactivate(ctx, node.Generate()), accountdomain.ErrNotFound)
}
