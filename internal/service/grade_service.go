package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gleeclub/portal-api/internal/models"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

var gradeTracer = otel.Tracer("github.com/gleeclub/portal-api/internal/service/grades")

type enrollmentSource interface {
	ListEnrolled(ctx context.Context, term string) ([]models.Enrollment, error)
}

type midtermSource interface {
	ListSubmitted(ctx context.Context, studentIDs []string) ([]models.MidtermSubmission, error)
	ListSubmissionGrades(ctx context.Context, submissionIDs []string) ([]models.SubmissionGrade, error)
}

type rubricSource interface {
	List(ctx context.Context) ([]models.GradingRubric, error)
}

type assignmentSource interface {
	ListGraded(ctx context.Context, studentIDs []string) ([]models.AssignmentScore, error)
}

type journalSource interface {
	ListGraded(ctx context.Context, studentIDs []string) ([]models.JournalScore, error)
}

type participationSource interface {
	ListByTerm(ctx context.Context, studentIDs []string, term string) ([]models.ParticipationScore, error)
}

type gradeSummaryStore interface {
	Upsert(ctx context.Context, summary *models.GradeSummaryRecord) error
	UpsertAll(ctx context.Context, summaries []models.GradeSummaryRecord) error
	ListByTerm(ctx context.Context, term string) ([]models.GradeSummaryRecord, error)
}

// GradeReaders bundles the upstream tables a calculation reads.
type GradeReaders struct {
	Enrollments   enrollmentSource
	Midterms      midtermSource
	Rubrics       rubricSource
	Assignments   assignmentSource
	Journals      journalSource
	Participation participationSource
}

// GradeServiceConfig carries the configured defaults.
type GradeServiceConfig struct {
	DefaultWeights models.GradeWeights
	Policy         models.WeightPolicy
	CommitAtomic   bool
}

// GradeQuery selects the term and weighting of a calculation. Nil weights and an
// empty policy fall back to the configured defaults.
type GradeQuery struct {
	Term    string               `validate:"required,max=64"`
	Weights *models.GradeWeights `validate:"-"`
	Policy  models.WeightPolicy  `validate:"omitempty,oneof=literal renormalize"`
	Refresh bool
}

// GradeService computes term rosters and commits them to the summary table.
type GradeService struct {
	readers   GradeReaders
	summaries gradeSummaryStore
	cache     *CacheService
	metrics   *MetricsService
	cfg       GradeServiceConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(readers GradeReaders, summaries gradeSummaryStore, cache *CacheService, metrics *MetricsService, cfg GradeServiceConfig, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Policy.Valid() {
		cfg.Policy = models.WeightPolicyLiteral
	}
	if cfg.DefaultWeights == (models.GradeWeights{}) {
		cfg.DefaultWeights = models.DefaultGradeWeights
	}
	return &GradeService{
		readers:   readers,
		summaries: summaries,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Calculate computes the roster and class statistics for a term.
func (s *GradeService) Calculate(ctx context.Context, query GradeQuery) (*models.GradeRoster, error) {
	weights, policy, err := s.resolve(query)
	if err != nil {
		return nil, err
	}

	key := RosterKey(query.Term, weights, policy)
	if !query.Refresh {
		if roster, ok := s.cache.GetRoster(ctx, key); ok {
			roster.Cached = true
			return roster, nil
		}
	}

	roster, err := s.compute(ctx, query.Term, weights, policy)
	if err != nil {
		return nil, err
	}
	s.cache.PutRoster(ctx, key, roster)
	return roster, nil
}

// StudentDetail returns one student's row from a fresh calculation.
func (s *GradeService) StudentDetail(ctx context.Context, query GradeQuery, studentID string) (*models.StudentGradeSummary, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	roster, err := s.Calculate(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range roster.Students {
		if roster.Students[i].StudentID == studentID {
			return &roster.Students[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in term")
}

// Commit recomputes the term and upserts every summary row. In sequential mode the
// first failed write stops the run and earlier rows stay written.
func (s *GradeService) Commit(ctx context.Context, query GradeQuery) (*models.CommitResult, error) {
	weights, policy, err := s.resolve(query)
	if err != nil {
		return nil, err
	}
	ctx, span := gradeTracer.Start(ctx, "grades.commit")
	defer span.End()
	span.SetAttributes(attribute.String("grades.term", query.Term), attribute.Bool("grades.atomic", s.cfg.CommitAtomic))

	roster, err := s.compute(ctx, query.Term, weights, policy)
	if err != nil {
		span.SetStatus(codes.Error, "calculation failed")
		return nil, err
	}

	calculatedAt := s.now().UTC()
	records := make([]models.GradeSummaryRecord, 0, len(roster.Students))
	for _, student := range roster.Students {
		record := SummaryRecord(student)
		record.CalculatedAt = calculatedAt
		records = append(records, record)
	}

	written, err := s.writeSummaries(ctx, records)
	s.metrics.ObserveCommit(s.cfg.CommitAtomic, written, err)
	if invalidateErr := s.cache.InvalidateTerm(ctx, query.Term); invalidateErr != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.String("term", query.Term), zap.Error(invalidateErr))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.logger.Error("grade summary commit failed",
			zap.String("term", query.Term),
			zap.Int("written", written),
			zap.Int("total", len(records)),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrCommitFailed.Code, appErrors.ErrCommitFailed.Status,
			fmt.Sprintf("updated %d of %d grade summaries", written, len(records)))
	}

	s.logger.Info("grade summaries committed",
		zap.String("term", query.Term),
		zap.Int("updated", written),
		zap.Bool("atomic", s.cfg.CommitAtomic),
	)
	return &models.CommitResult{Term: query.Term, Updated: written, Atomic: s.cfg.CommitAtomic, At: calculatedAt}, nil
}

// CachedSummaries lists the committed summary rows of a term.
func (s *GradeService) CachedSummaries(ctx context.Context, term string) ([]models.GradeSummaryRecord, error) {
	if strings.TrimSpace(term) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term required")
	}
	records, err := s.summaries.ListByTerm(ctx, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade summaries")
	}
	if records == nil {
		records = []models.GradeSummaryRecord{}
	}
	return records, nil
}

// Defaults returns the configured weights and policy.
func (s *GradeService) Defaults() (models.GradeWeights, models.WeightPolicy) {
	return s.cfg.DefaultWeights, s.cfg.Policy
}

func (s *GradeService) writeSummaries(ctx context.Context, records []models.GradeSummaryRecord) (int, error) {
	if s.cfg.CommitAtomic {
		if err := s.summaries.UpsertAll(ctx, records); err != nil {
			return 0, err
		}
		return len(records), nil
	}
	for i := range records {
		if err := s.summaries.Upsert(ctx, &records[i]); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

func (s *GradeService) resolve(query GradeQuery) (models.GradeWeights, models.WeightPolicy, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.GradeWeights{}, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade query")
	}
	weights := s.cfg.DefaultWeights
	if query.Weights != nil {
		weights = *query.Weights
	}
	if err := validateWeights(weights); err != nil {
		return models.GradeWeights{}, "", err
	}
	policy := query.Policy
	if policy == "" {
		policy = s.cfg.Policy
	}
	return weights, policy, nil
}

func validateWeights(w models.GradeWeights) error {
	for _, v := range []float64{w.Midterm, w.Assignments, w.Journals, w.Participation} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return appErrors.Clone(appErrors.ErrInvalidWeights, "weights must be finite and non-negative")
		}
	}
	return nil
}

func (s *GradeService) compute(ctx context.Context, term string, weights models.GradeWeights, policy models.WeightPolicy) (*models.GradeRoster, error) {
	ctx, span := gradeTracer.Start(ctx, "grades.calculate")
	defer span.End()
	span.SetAttributes(attribute.String("grades.term", term), attribute.String("grades.policy", string(policy)))

	start := time.Now()
	sources, err := s.load(ctx, term)
	if err != nil {
		s.metrics.ObserveGradeRun(0, err, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "source read failed")
		s.logger.Error("grade source read failed", zap.String("term", term), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamRead.Code, appErrors.ErrUpstreamRead.Status, appErrors.ErrUpstreamRead.Message)
	}

	students := CalculateRoster(AssembleStudentGrades(sources), weights, policy)
	roster := &models.GradeRoster{
		Term:       term,
		Weights:    weights,
		Policy:     policy,
		Students:   students,
		Statistics: ComputeClassStatistics(students),
		ComputedAt: s.now().UTC(),
	}
	duration := time.Since(start)
	s.metrics.ObserveGradeRun(len(students), nil, duration)
	span.SetAttributes(attribute.Int("grades.students", len(students)))
	s.logger.Debug("grade roster calculated",
		zap.String("term", term),
		zap.Int("students", len(students)),
		zap.Duration("duration", duration),
	)
	return roster, nil
}

// load reads enrollments, then every other source concurrently. The first failure
// cancels the remaining reads and no partial result is returned.
func (s *GradeService) load(ctx context.Context, term string) (GradeSources, error) {
	var src GradeSources
	enrollments, err := timed(s.metrics, "enrollments", func() ([]models.Enrollment, error) {
		return s.readers.Enrollments.ListEnrolled(ctx, term)
	})
	if err != nil {
		return src, err
	}
	src.Enrollments = enrollments
	if len(enrollments) == 0 {
		return src, nil
	}

	studentIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		studentIDs = append(studentIDs, e.StudentID)
	}

	var (
		submissions []models.MidtermSubmission
		subGrades   []models.SubmissionGrade
		rubrics     []models.GradingRubric
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		submissions, err = timed(s.metrics, "midterm_submissions", func() ([]models.MidtermSubmission, error) {
			return s.readers.Midterms.ListSubmitted(gctx, studentIDs)
		})
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(submissions))
		for _, sub := range submissions {
			ids = append(ids, sub.ID)
		}
		subGrades, err = timed(s.metrics, "submission_grades", func() ([]models.SubmissionGrade, error) {
			return s.readers.Midterms.ListSubmissionGrades(gctx, ids)
		})
		return err
	})
	g.Go(func() error {
		var err error
		rubrics, err = timed(s.metrics, "grading_rubrics", func() ([]models.GradingRubric, error) {
			return s.readers.Rubrics.List(gctx)
		})
		return err
	})
	g.Go(func() error {
		var err error
		src.Assignments, err = timed(s.metrics, "assignment_submissions", func() ([]models.AssignmentScore, error) {
			return s.readers.Assignments.ListGraded(gctx, studentIDs)
		})
		return err
	})
	g.Go(func() error {
		var err error
		src.Journals, err = timed(s.metrics, "journal_grades", func() ([]models.JournalScore, error) {
			return s.readers.Journals.ListGraded(gctx, studentIDs)
		})
		return err
	})
	g.Go(func() error {
		var err error
		src.Participation, err = timed(s.metrics, "participation_grades", func() ([]models.ParticipationScore, error) {
			return s.readers.Participation.ListByTerm(gctx, studentIDs, term)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return GradeSources{}, err
	}

	src.Midterms = ResolveMidterms(submissions, subGrades, rubrics)
	return src, nil
}

func timed[T any](metrics *MetricsService, source string, fn func() ([]T, error)) ([]T, error) {
	start := time.Now()
	rows, err := fn()
	metrics.ObserveDBQuery(source, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return rows, nil
}
