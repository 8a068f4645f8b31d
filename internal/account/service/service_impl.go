package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/campusbooks/internal/account/domain"
	"github.com/smallbiznis/campusbooks/pkg/db"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  accountdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  accountdomain.Repository
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req accountdomain.CreateAccountRequest) (accountdomain.FinancialAccount, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return accountdomain.FinancialAccount{}, accountdomain.ErrInvalidSchool
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return accountdomain.FinancialAccount{}, accountdomain.ErrInvalidName
	}
	if !req.Kind.Valid() {
		return accountdomain.FinancialAccount{}, accountdomain.ErrInvalidKind
	}

	now := time.Now().UTC()
	account := accountdomain.FinancialAccount{
		ID:        s.genID.Generate(),
		SchoolID:  schoolID,
		Name:      name,
		Kind:      req.Kind,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return accountdomain.FinancialAccount{}, accountdomain.ErrDuplicateName
		}
		return accountdomain.FinancialAccount{}, err
	}
	return account, nil
}

func (s *Service) List(ctx context.Context) ([]accountdomain.FinancialAccount, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidSchool
	}
	return s.repo.List(ctx, s.db, schoolID)
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return accountdomain.ErrInvalidSchool
	}
	updated, err := s.repo.SetActive(ctx, s.db, schoolID, id, false)
	if err != nil {
		return err
	}
	if !updated {
		return accountdomain.ErrNotFound
	}
	return nil
}
