package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/campusbooks/internal/account"
	accountdomain "github.com/smallbiznis/campusbooks/internal/account/domain"
	"github.com/smallbiznis/campusbooks/internal/audit"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	"github.com/smallbiznis/campusbooks/internal/cache"
	"github.com/smallbiznis/campusbooks/internal/clock"
	"github.com/smallbiznis/campusbooks/internal/collection"
	collectiondomain "github.com/smallbiznis/campusbooks/internal/collection/domain"
	"github.com/smallbiznis/campusbooks/internal/config"
	"github.com/smallbiznis/campusbooks/internal/due"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	"github.com/smallbiznis/campusbooks/internal/exam"
	examdomain "github.com/smallbiznis/campusbooks/internal/exam/domain"
	"github.com/smallbiznis/campusbooks/internal/feestructure"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	"github.com/smallbiznis/campusbooks/internal/migration"
	obslogger "github.com/smallbiznis/campusbooks/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/campusbooks/internal/observability/metrics"
	"github.com/smallbiznis/campusbooks/internal/student"
	studentdomain "github.com/smallbiznis/campusbooks/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	cache.Module,
	obsmetrics.Module,
	migration.Module,
	audit.Module,
	account.Module,
	feestructure.Module,
	student.Module,
	due.Module,
	collection.Module,
	exam.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
			month := fl.Field().Int()
			return month >= 1 && month <= 12
		})
	}
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	genID         *snowflake.Node
	accountSvc    accountdomain.Service
	auditSvc      auditdomain.Service
	collectionSvc collectiondomain.Service
	dueSvc        duedomain.Service
	examSvc       examdomain.Service
	feeSvc        feedomain.Service
	studentSvc    studentdomain.Service
	viewStore     cache.ViewStore
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	GenID         *snowflake.Node
	AccountSvc    accountdomain.Service
	AuditSvc      auditdomain.Service
	CollectionSvc collectiondomain.Service
	DueSvc        duedomain.Service
	ExamSvc       examdomain.Service
	FeeSvc        feedomain.Service
	StudentSvc    studentdomain.Service
	ViewStore     cache.ViewStore `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		genID:         p.GenID,
		accountSvc:    p.AccountSvc,
		auditSvc:      p.AuditSvc,
		collectionSvc: p.CollectionSvc,
		dueSvc:        p.DueSvc,
		examSvc:       p.ExamSvc,
		feeSvc:        p.FeeSvc,
		studentSvc:    p.StudentSvc,
		viewStore:     p.ViewStore,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.SchoolContext())

	accounts := api.Group("/accounts")
	accounts.POST("", s.CreateAccount)
	accounts.GET("", s.ListAccounts)
	accounts.DELETE("/:id", s.DeactivateAccount)

	fees := api.Group("/fee-structures")
	fees.POST("", s.CreateFeeStructure)
	fees.GET("", s.ListFeeStructures)
	fees.GET("/:id", s.GetFeeStructure)
	fees.POST("/:id/items", s.AddFeeItem)
	fees.DELETE("/:id/items/:itemID", s.ArchiveFeeItem)

	students := api.Group("/students")
	students.POST("", s.EnrollStudent)
	students.GET("", s.ListStudents)
	students.GET("/:id", s.GetStudent)
	students.GET("/:id/dues", s.ListStudentDues)
	students.POST("/:id/generate-dues", s.GenerateStudentDues)

	dues := api.Group("/dues")
	dues.POST("", s.AddDue)
	dues.POST("/items/:itemID/adjustments", s.ApplyAdjustment)
	dues.DELETE("/items/:itemID/adjustments/:adjustmentID", s.CancelAdjustment)

	collections := api.Group("/collections")
	collections.POST("", s.CollectFees)
	collections.GET("", s.ListCollections)
	collections.GET("/:id", s.GetCollection)

	exams := api.Group("/exams")
	exams.POST("", s.CreateExam)
	exams.GET("", s.ListExams)
	exams.POST("/:id/schedules", s.CreateExamSchedules)
	exams.GET("/:id/schedules", s.ListExamSchedules)
	exams.POST("/:id/results", s.UpsertExamResult)
	exams.GET("/:id/results/:studentID", s.GetResultSummary)
	exams.GET("/:id/results/:studentID/published", s.GetPublishedSummary)
	exams.PUT("/:id/result-status", s.SetExamResultStatus)

	grades := api.Group("/grade-scale")
	grades.PUT("", s.SaveGradeScale)
	grades.GET("", s.GetGradeScale)

	api.GET("/audit-logs", s.ListAuditLogs)
}
