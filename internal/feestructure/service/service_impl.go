package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  feedomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  feedomain.Repository
}

func NewService(p Params) feedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("feestructure.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req feedomain.CreateFeeStructureRequest) (feedomain.FeeStructure, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return feedomain.FeeStructure{}, feedomain.ErrInvalidSchool
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return feedomain.FeeStructure{}, feedomain.ErrInvalidName
	}

	now := time.Now().UTC()
	structure := feedomain.FeeStructure{
		ID:           s.genID.Generate(),
		SchoolID:     schoolID,
		Name:         name,
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	items := make([]feedomain.FeeItem, 0, len(req.Items))
	for _, input := range req.Items {
		item, err := s.buildItem(schoolID, structure.ID, input, now)
		if err != nil {
			return feedomain.FeeStructure{}, err
		}
		items = append(items, item)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &structure); err != nil {
			return err
		}
		for i := range items {
			if err := s.repo.InsertItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return feedomain.FeeStructure{}, err
	}

	structure.Items = items
	return structure, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (feedomain.FeeStructure, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return feedomain.FeeStructure{}, feedomain.ErrInvalidSchool
	}

	structure, err := s.repo.Find(ctx, s.db, schoolID, id)
	if err != nil {
		return feedomain.FeeStructure{}, err
	}
	if structure == nil {
		return feedomain.FeeStructure{}, feedomain.ErrNotFound
	}
	return *structure, nil
}

func (s *Service) List(ctx context.Context) ([]feedomain.FeeStructure, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, feedomain.ErrInvalidSchool
	}
	return s.repo.List(ctx, s.db, schoolID)
}

func (s *Service) AddItem(ctx context.Context, structureID snowflake.ID, input feedomain.FeeItemInput) (feedomain.FeeItem, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return feedomain.FeeItem{}, feedomain.ErrInvalidSchool
	}

	structure, err := s.repo.Find(ctx, s.db, schoolID, structureID)
	if err != nil {
		return feedomain.FeeItem{}, err
	}
	if structure == nil {
		return feedomain.FeeItem{}, feedomain.ErrNotFound
	}

	item, err := s.buildItem(schoolID, structureID, input, time.Now().UTC())
	if err != nil {
		return feedomain.FeeItem{}, err
	}
	if err := s.repo.InsertItem(ctx, s.db, &item); err != nil {
		return feedomain.FeeItem{}, err
	}
	return item, nil
}

func (s *Service) ArchiveItem(ctx context.Context, structureID, itemID snowflake.ID) error {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return feedomain.ErrInvalidSchool
	}

	updated, err := s.repo.SetItemStatus(ctx, s.db, schoolID, structureID, itemID, feedomain.FeeItemStatusArchived)
	if err != nil {
		return err
	}
	if !updated {
		return feedomain.ErrItemNotFound
	}
	return nil
}

func (s *Service) buildItem(schoolID, structureID snowflake.ID, input feedomain.FeeItemInput, now time.Time) (feedomain.FeeItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return feedomain.FeeItem{}, feedomain.ErrInvalidName
	}
	if !input.Frequency.Valid() {
		return feedomain.FeeItem{}, feedomain.ErrInvalidFrequency
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil || amount.IsNegative() || amount.IsZero() {
		return feedomain.FeeItem{}, feedomain.ErrInvalidAmount
	}

	lateFeeAmount := decimal.Zero
	lateFeeFrequency := feedomain.LateFeeOneTime
	if input.LateFeeEnabled {
		lateFeeAmount, err = decimal.NewFromString(strings.TrimSpace(input.LateFeeAmount))
		if err != nil || lateFeeAmount.IsNegative() || lateFeeAmount.IsZero() {
			return feedomain.FeeItem{}, feedomain.ErrInvalidAmount
		}
		if input.LateFeeFrequency == feedomain.LateFeeMonthly {
			lateFeeFrequency = feedomain.LateFeeMonthly
		}
	}

	return feedomain.FeeItem{
		ID:               s.genID.Generate(),
		SchoolID:         schoolID,
		FeeStructureID:   structureID,
		Name:             name,
		Category:         strings.TrimSpace(input.Category),
		Amount:           amount,
		Frequency:        input.Frequency,
		Status:           feedomain.FeeItemStatusActive,
		LateFeeEnabled:   input.LateFeeEnabled,
		LateFeeAmount:    lateFeeAmount,
		LateFeeFrequency: lateFeeFrequency,
		LateFeeGraceDays: input.LateFeeGraceDays,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
