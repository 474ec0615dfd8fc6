package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gleeclub/portal-api/internal/dto"
	"github.com/gleeclub/portal-api/internal/models"
	"github.com/gleeclub/portal-api/internal/repository"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
	"github.com/gleeclub/portal-api/pkg/jobs"
	"github.com/gleeclub/portal-api/pkg/storage"
)

// ReportTask is the queued unit of work for one export job.
type ReportTask = jobs.Job[models.ReportFormat]

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListUnfinished(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job ReportTask) error
}

type exportStore interface {
	Supports(format models.ReportFormat) bool
	ContentType(format models.ReportFormat) string
	ParseToken(token string, allowExpired bool) (storage.Download, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ReportService manages the lifecycle of roster export jobs.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	exports   exportStore
	defaults  func() (models.GradeWeights, models.WeightPolicy)
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs the report service. defaults supplies the weights
// and policy recorded on jobs that omit them.
func NewReportService(repo reportJobStore, queue jobDispatcher, exports exportStore, defaults func() (models.GradeWeights, models.WeightPolicy), metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaults == nil {
		defaults = func() (models.GradeWeights, models.WeightPolicy) {
			return models.DefaultGradeWeights, models.WeightPolicyLiteral
		}
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		exports:   exports,
		defaults:  defaults,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateJob validates the request, persists the job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	if !s.exports.Supports(req.Format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	weights, policy := s.defaults()
	if req.Weights != nil {
		if err := validateWeights(*req.Weights); err != nil {
			return nil, err
		}
		weights = *req.Weights
	}
	if req.Policy != "" {
		policy = req.Policy
	}

	job := &models.ReportJob{
		Params:    models.ReportJobParams{Term: req.Term, Format: req.Format, Weights: weights, Policy: policy},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(ReportTask{ID: job.ID, Payload: job.Params.Format}); err != nil {
		msg := "failed to enqueue job"
		s.markFailed(ctx, job.ID, job.Params.Format, msg)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.metrics.ObserveReportJob(job.Params.Format, models.ReportStatusQueued)
	s.logger.Info("report job queued", zap.String("job_id", job.ID), zap.String("term", req.Term), zap.String("format", string(req.Format)))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata. Admins see every job; other callers only their own.
func (s *ReportService) GetStatus(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin) && (actor.UserID() == "" || job.CreatedBy != actor.UserID()) {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ReportStatusResponse{
		ID:         job.ID,
		Status:     job.Status,
		Progress:   job.Progress,
		Params:     job.Params,
		ResultURL:  job.ResultURL,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a download token and opens the stored export.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	download, err := s.exports.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, download.JobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, "/"+token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exports.Open(download.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    download.File,
		ContentType: s.exports.ContentType(job.Params.Format),
		ExpiresAt:   download.ExpiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues jobs left queued or processing by a previous process.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListUnfinished(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover report jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(ReportTask{ID: job.ID, Payload: job.Params.Format}); err != nil {
			s.logger.Warn("failed to requeue report job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("report jobs recovered", zap.Int("count", recovered))
	}
	return recovered
}

// StartCleanup purges expired exports every CleanupInterval until ctx is done.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired(ctx)
			}
		}
	}()
}

// CleanupExpired deletes the files of jobs finished longer than ResultTTL ago,
// then sweeps any stray files of the same age.
func (s *ReportService) CleanupExpired(ctx context.Context) int {
	const batch = 100
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	removed := 0
	jobs, err := s.repo.ListFinishedBefore(ctx, cutoff, batch)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return removed
	}
	for _, job := range jobs {
		if job.ResultURL == nil {
			continue
		}
		download, err := s.exports.ParseToken(extractToken(*job.ResultURL), true)
		if err != nil {
			continue
		}
		if err := s.exports.Delete(download.File); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		removed++
	}
	swept, err := s.exports.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export directory cleanup failed", zap.Error(err))
	}
	removed += len(swept)
	if removed > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", removed))
	}
	return removed
}

// MarkGivenUp records a job that exhausted its retries as failed.
func (s *ReportService) MarkGivenUp(ctx context.Context, task ReportTask, cause error) {
	msg := "export failed"
	if cause != nil {
		msg = cause.Error()
	}
	s.markFailed(context.WithoutCancel(ctx), task.ID, task.Payload, msg)
}

func (s *ReportService) markFailed(ctx context.Context, id string, format models.ReportFormat, msg string) {
	status := models.ReportStatusFailed
	progress := 100
	now := s.now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark report job failed", zap.String("job_id", id), zap.Error(err))
	}
	s.metrics.ObserveReportJob(format, models.ReportStatusFailed)
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

func extractToken(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportWorker bridges queued tasks to the export service.
type ReportWorker struct {
	repo     reportJobStore
	exporter exportGenerator
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger, now: time.Now}
}

// Handle processes one task. A returned error makes the queue retry it.
func (w *ReportWorker) Handle(ctx context.Context, task ReportTask) error {
	record, err := w.repo.GetByID(ctx, task.ID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return nil
	}

	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, task.ID, repository.UpdateReportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return err
	}
	w.metrics.ObserveReportJob(record.Params.Format, models.ReportStatusProcessing)

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		queued := models.ReportStatusQueued
		reset := 0
		msg := err.Error()
		if updateErr := w.repo.Update(ctx, task.ID, repository.UpdateReportJobParams{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Warn("failed to requeue report job", zap.String("job_id", task.ID), zap.Error(updateErr))
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := w.now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, task.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &result.URL,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		return err
	}
	w.metrics.ObserveReportJob(record.Params.Format, models.ReportStatusFinished)
	w.logger.Info("report job finished", zap.String("job_id", task.ID), zap.Int("students", result.Students))
	return nil
}
