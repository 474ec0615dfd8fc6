package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gleeclub/portal-api/internal/handler"
	"github.com/gleeclub/portal-api/internal/models"
	"github.com/gleeclub/portal-api/internal/repository"
	"github.com/gleeclub/portal-api/internal/service"
	"github.com/gleeclub/portal-api/pkg/cache"
	"github.com/gleeclub/portal-api/pkg/config"
	"github.com/gleeclub/portal-api/pkg/database"
	"github.com/gleeclub/portal-api/pkg/jobs"
	"github.com/gleeclub/portal-api/pkg/logger"
	"github.com/gleeclub/portal-api/pkg/storage"
	"github.com/gleeclub/portal-api/pkg/tracing"
)

// @title Glee Club Portal Grades API
// @version 1.0.0
// @description Term gradebook: weighted composite grades, class statistics, summary commits and roster exports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg, logr)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	var redisClient *redis.Client
	if cfg.Grades.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("roster cache disabled: redis unavailable", zap.Error(err))
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "grades", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grades.CacheTTL, logr, redisClient != nil)

	grades := service.NewGradeService(gradeReaders(db), repository.NewGradeSummaryRepository(db), cacheSvc, metrics, service.GradeServiceConfig{
		DefaultWeights: weightsFromConfig(cfg.Grades.DefaultWeights),
		Policy:         models.WeightPolicy(cfg.Grades.WeightPolicy),
		CommitAtomic:   cfg.Grades.CommitAtomic,
	}, validate, logr.Named("grades"))

	auth := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, logr.Named("auth"))

	var reports *service.ReportService
	if cfg.Reports.Enabled {
		var stopReports func()
		reports, stopReports, err = startReports(ctx, cfg, db, grades, metrics, validate, logr.Named("reports"))
		if err != nil {
			return err
		}
		defer stopReports()
	}

	router := newRouter(cfg, logr, routerDeps{
		auth:    auth,
		grades:  grades,
		reports: reports,
		metrics: metrics,
		checks:  readinessChecks(db, cacheRepo, redisClient != nil),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func gradeReaders(db *sqlx.DB) service.GradeReaders {
	return service.GradeReaders{
		Enrollments:   repository.NewEnrollmentRepository(db),
		Midterms:      repository.NewMidtermRepository(db),
		Rubrics:       repository.NewRubricRepository(db),
		Assignments:   repository.NewAssignmentRepository(db),
		Journals:      repository.NewJournalRepository(db),
		Participation: repository.NewParticipationRepository(db),
	}
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository, cacheEnabled bool) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"database": db}
	if cacheEnabled {
		checks["cache"] = cacheRepo
	}
	return checks
}

func weightsFromConfig(w [4]float64) models.GradeWeights {
	return models.GradeWeights{Midterm: w[0], Assignments: w[1], Journals: w[2], Participation: w[3]}
}

func startReports(ctx context.Context, cfg *config.Config, db *sqlx.DB, grades *service.GradeService, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*service.ReportService, func(), error) {
	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exports := service.NewExportService(grades, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)

	repo := repository.NewReportRepository(db)
	worker := service.NewReportWorker(repo, exports, metrics, logr)

	var reports *service.ReportService
	queue := jobs.NewQueue("roster-exports", worker.Handle, jobs.QueueConfig[models.ReportFormat]{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		OnGiveUp: func(ctx context.Context, task service.ReportTask, err error) {
			reports.MarkGivenUp(ctx, task, err)
		},
		Logger: logr,
	})
	reports = service.NewReportService(repo, queue, exports, grades.Defaults, metrics, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})

	queueCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	queue.Start(queueCtx)
	metrics.TrackReportQueue(queue.Pending)
	reports.RecoverPendingJobs(ctx)
	reports.StartCleanup(queueCtx)

	return reports, func() {
		cancel()
		queue.Stop()
	}, nil
}
