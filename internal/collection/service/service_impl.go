package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	accountdomain "github.com/smallbiznis/campusbooks/internal/account/domain"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	"github.com/smallbiznis/campusbooks/internal/cache"
	"github.com/smallbiznis/campusbooks/internal/clock"
	"github.com/smallbiznis/campusbooks/internal/collection/domain"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	obsmetrics "github.com/smallbiznis/campusbooks/internal/observability/metrics"
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
	DueRepo     duedomain.Repository
	AccountRepo accountdomain.Repository
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
	dueRepo     duedomain.Repository
	accountRepo accountdomain.Repository
	auditSvc    auditdomain.Service
	invalidator cache.Invalidator
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("collection.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		dueRepo:     p.DueRepo,
		accountRepo: p.AccountRepo,
		auditSvc:    p.AuditSvc,
		invalidator: p.Invalidator,
		obsMetrics:  p.ObsMetrics,
	}
}

// Collect records one payment submission atomically. Any validation failure
// on any line rolls back the whole submission, so a receipt either exists in
// full or not at all.
func (s *Service) Collect(ctx context.Context, req domain.CollectRequest) (*domain.CollectResponse, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, duedomain.ErrInvalidSchool
	}
	if len(req.MonthCollections) == 0 {
		return nil, domain.ErrEmptyCollection
	}

	payments, accountIDs, err := parsePayments(req)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, domain.ErrEmptyCollection
	}

	now := s.clock.Now()
	collection := domain.Collection{
		ID:            s.genID.Generate(),
		SchoolID:      schoolID,
		StudentID:     req.StudentID,
		ReceiptNumber: uuid.NewString(),
		Reason:        strings.TrimSpace(req.Reason),
		TotalAmount:   decimal.Zero,
		CreatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts, err := s.accountRepo.FindActiveByIDs(ctx, tx, schoolID, accountIDs)
		if err != nil {
			return err
		}
		for _, id := range accountIDs {
			if _, ok := accounts[id]; !ok {
				return domain.ErrInvalidAccount
			}
		}

		for _, p := range payments {
			due, err := s.dueRepo.FindStudentDue(ctx, tx, schoolID, p.studentDueID)
			if err != nil {
				return err
			}
			if due == nil {
				return duedomain.ErrStudentDueNotFound
			}
			if due.StudentID != req.StudentID {
				return domain.ErrStudentMismatch
			}

			paid, err := s.payItem(ctx, tx, schoolID, collection.ID, p, now)
			if err != nil {
				return err
			}
			collection.TotalAmount = collection.TotalAmount.Add(paid)
		}

		return s.repo.InsertCollection(ctx, tx, &collection)
	})
	if err != nil {
		return nil, err
	}

	s.afterCollect(ctx, schoolID, req.StudentID, collection)

	persisted, err := s.repo.FindCollection(ctx, s.db, schoolID, collection.ID)
	if err == nil && persisted != nil {
		collection = *persisted
	}
	return &domain.CollectResponse{Collection: collection, Allocated: collection.TotalAmount}, nil
}

// payment is one parsed fee item line with its bucket context attached.
type payment struct {
	studentDueID snowflake.ID
	dueItemID    snowflake.ID
	accountID    snowflake.ID
	amount       decimal.Decimal
	adjustments  []parsedAdjustment
}

type parsedAdjustment struct {
	kind      duedomain.AdjustmentKind
	magnitude decimal.Decimal
	reason    string
}

func parsePayments(req domain.CollectRequest) ([]payment, []snowflake.ID, error) {
	var payments []payment
	accountSeen := make(map[snowflake.ID]struct{})
	var accountIDs []snowflake.ID

	for _, mc := range req.MonthCollections {
		if len(mc.FeeItems) == 0 {
			return nil, nil, domain.ErrEmptyCollection
		}
		for _, fi := range mc.FeeItems {
			amount, err := decimal.NewFromString(strings.TrimSpace(fi.Amount))
			if err != nil || !amount.IsPositive() {
				return nil, nil, domain.ErrInvalidAmount
			}

			p := payment{
				studentDueID: mc.StudentDueID,
				dueItemID:    fi.DueItemID,
				accountID:    fi.AccountID,
				amount:       amount,
			}
			for _, adj := range fi.Adjustments {
				magnitude, err := decimal.NewFromString(strings.TrimSpace(adj.Amount))
				if err != nil || !magnitude.IsPositive() {
					return nil, nil, domain.ErrInvalidAmount
				}
				kind := duedomain.AdjustmentKind(adj.Kind)
				if !kind.Valid() {
					return nil, nil, duedomain.ErrInvalidAdjustmentKind
				}
				p.adjustments = append(p.adjustments, parsedAdjustment{
					kind:      kind,
					magnitude: magnitude,
					reason:    strings.TrimSpace(adj.Reason),
				})
			}

			payments = append(payments, p)
			if _, ok := accountSeen[fi.AccountID]; !ok {
				accountSeen[fi.AccountID] = struct{}{}
				accountIDs = append(accountIDs, fi.AccountID)
			}
		}
	}
	return payments, accountIDs, nil
}

// payItem applies the line's inline adjustments, checks the payment against
// the adjusted remaining balance and advances paidAmount under the version
// guard.
func (s *Service) payItem(ctx context.Context, tx *gorm.DB, schoolID, collectionID snowflake.ID, p payment, now time.Time) (decimal.Decimal, error) {
	item, err := s.dueRepo.FindDueItem(ctx, tx, schoolID, p.dueItemID)
	if err != nil {
		return decimal.Zero, err
	}
	if item == nil {
		return decimal.Zero, domain.ErrDueItemNotFound
	}
	if item.StudentDueID != p.studentDueID {
		return decimal.Zero, domain.ErrDueItemNotFound
	}

	for _, pa := range p.adjustments {
		adj, err := duedomain.NewAdjustment(
			s.genID.Generate(),
			schoolID,
			item.ID,
			string(pa.kind),
			pa.magnitude,
			pa.kind,
			item.Category,
			pa.reason,
			now,
		)
		if err != nil {
			return decimal.Zero, err
		}
		if err := s.dueRepo.InsertAdjustment(ctx, tx, &adj); err != nil {
			return decimal.Zero, err
		}
	}

	adjustments, err := s.dueRepo.ActiveAdjustments(ctx, tx, schoolID, item.ID)
	if err != nil {
		return decimal.Zero, err
	}

	expectedVersion := item.Version
	item.FinalAmount = duedomain.FinalAmountWith(item.OriginalAmount, adjustments)

	if p.amount.GreaterThan(item.Remaining()) {
		return decimal.Zero, domain.ErrExceedsRemaining
	}

	item.PaidAmount = item.PaidAmount.Add(p.amount)
	item.Status = duedomain.StatusFor(item.PaidAmount, item.FinalAmount, duedomain.HasActiveWaiver(adjustments), item.Status)
	item.UpdatedAt = now

	applied, err := s.dueRepo.UpdateDueItemAmounts(ctx, tx, item, expectedVersion)
	if err != nil {
		return decimal.Zero, err
	}
	if !applied {
		return decimal.Zero, duedomain.ErrConcurrentModification
	}

	line := domain.CollectionItem{
		ID:           s.genID.Generate(),
		SchoolID:     schoolID,
		CollectionID: collectionID,
		StudentDueID: p.studentDueID,
		DueItemID:    item.ID,
		AccountID:    p.accountID,
		Amount:       p.amount,
		CreatedAt:    now,
	}
	if err := s.repo.InsertCollectionItem(ctx, tx, &line); err != nil {
		return decimal.Zero, err
	}
	return p.amount, nil
}

func (s *Service) afterCollect(ctx context.Context, schoolID, studentID snowflake.ID, collection domain.Collection) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx,
			cache.StudentDuesTag(schoolID, studentID),
			cache.SchoolDashboardTag(schoolID),
		)
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCollection()
	}

	targetID := collection.ID.String()
	if s.auditSvc != nil {
		err := s.auditSvc.AuditLog(ctx, &schoolID, "", nil, "collection.recorded", "collection", &targetID, map[string]any{
			"student_id":     studentID.String(),
			"receipt_number": collection.ReceiptNumber,
			"total_amount":   collection.TotalAmount.String(),
		})
		if err != nil {
			s.log.Warn("failed to write collection audit log", zap.Error(err))
		}
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Collection, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, duedomain.ErrInvalidSchool
	}
	c, err := s.repo.FindCollection(ctx, s.db, schoolID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCollectionNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, f domain.ListFilter) ([]domain.Collection, error) {
	schoolID, ok := tenantctx.SchoolID(ctx)
	if !ok {
		return nil, duedomain.ErrInvalidSchool
	}
	return s.repo.ListCollections(ctx, s.db, schoolID, f)
}
