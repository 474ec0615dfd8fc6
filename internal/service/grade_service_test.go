package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeclub/portal-api/internal/models"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

type fakeGradeReaders struct {
	enrollments   []models.Enrollment
	submissions   []models.MidtermSubmission
	subGrades     []models.SubmissionGrade
	rubrics       []models.GradingRubric
	assignments   []models.AssignmentScore
	journals      []models.JournalScore
	participation []models.ParticipationScore

	enrollmentErr error
	journalErr    error

	enrollmentCalls int32
	assignmentCalls int32
}

func (f *fakeGradeReaders) ListEnrolled(ctx context.Context, term string) ([]models.Enrollment, error) {
	atomic.AddInt32(&f.enrollmentCalls, 1)
	if f.enrollmentErr != nil {
		return nil, f.enrollmentErr
	}
	out := make([]models.Enrollment, 0, len(f.enrollments))
	for _, e := range f.enrollments {
		if e.Term == term {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGradeReaders) ListSubmitted(ctx context.Context, studentIDs []string) ([]models.MidtermSubmission, error) {
	return f.submissions, nil
}

func (f *fakeGradeReaders) ListSubmissionGrades(ctx context.Context, submissionIDs []string) ([]models.SubmissionGrade, error) {
	return f.subGrades, nil
}

func (f *fakeGradeReaders) List(ctx context.Context) ([]models.GradingRubric, error) {
	return f.rubrics, nil
}

type fakeAssignmentReader struct{ *fakeGradeReaders }

func (f fakeAssignmentReader) ListGraded(ctx context.Context, studentIDs []string) ([]models.AssignmentScore, error) {
	atomic.AddInt32(&f.assignmentCalls, 1)
	return f.assignments, nil
}

type fakeJournalReader struct{ *fakeGradeReaders }

func (f fakeJournalReader) ListGraded(ctx context.Context, studentIDs []string) ([]models.JournalScore, error) {
	if f.journalErr != nil {
		return nil, f.journalErr
	}
	return f.journals, nil
}

func (f *fakeGradeReaders) ListByTerm(ctx context.Context, studentIDs []string, term string) ([]models.ParticipationScore, error) {
	return f.participation, nil
}

func (f *fakeGradeReaders) readers() GradeReaders {
	return GradeReaders{
		Enrollments:   f,
		Midterms:      f,
		Rubrics:       f,
		Assignments:   fakeAssignmentReader{f},
		Journals:      fakeJournalReader{f},
		Participation: f,
	}
}

type fakeSummaryStore struct {
	upserted  []models.GradeSummaryRecord
	bulk      [][]models.GradeSummaryRecord
	failAfter int
	err       error
	listed    []models.GradeSummaryRecord
	listErr   error
}

func (f *fakeSummaryStore) Upsert(ctx context.Context, summary *models.GradeSummaryRecord) error {
	if f.err != nil && len(f.upserted) >= f.failAfter {
		return f.err
	}
	f.upserted = append(f.upserted, *summary)
	return nil
}

func (f *fakeSummaryStore) UpsertAll(ctx context.Context, summaries []models.GradeSummaryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.bulk = append(f.bulk, summaries)
	return nil
}

func (f *fakeSummaryStore) ListByTerm(ctx context.Context, term string) ([]models.GradeSummaryRecord, error) {
	return f.listed, f.listErr
}

func newGradeFixture() *fakeGradeReaders {
	return &fakeGradeReaders{
		enrollments: []models.Enrollment{
			{StudentID: "stu-2", Term: "fall-2025", Status: models.EnrollmentStatusEnrolled, StudentName: "Blank Slate"},
			{StudentID: "stu-1", Term: "fall-2025", Status: models.EnrollmentStatusEnrolled, StudentName: "Ada Baker"},
			{StudentID: "stu-3", Term: "fall-2025", Status: models.EnrollmentStatusEnrolled, StudentName: "Rubric Only"},
		},
		submissions: []models.MidtermSubmission{
			{ID: "sub-1", UserID: "stu-1", Grade: ptrFloat(85), IsSubmitted: true},
			{ID: "sub-3", UserID: "stu-3", IsSubmitted: true},
		},
		subGrades: []models.SubmissionGrade{
			{SubmissionID: "sub-3", QuestionType: "essay", QuestionID: "q1", InstructorScore: ptrFloat(18)},
		},
		rubrics: []models.GradingRubric{{QuestionType: "essay", QuestionID: "q1", TotalPoints: ptrFloat(20)}},
		assignments: []models.AssignmentScore{
			{StudentID: "stu-1", AssignmentID: "a1", Score: 90},
			{StudentID: "stu-1", AssignmentID: "a2", Score: 70},
		},
		journals:      []models.JournalScore{{StudentID: "stu-1", JournalID: "j1", Overall: ptrFloat(80)}},
		participation: []models.ParticipationScore{{StudentID: "stu-1", Term: "fall-2025", PointsEarned: ptrFloat(60)}},
	}
}

func newTestGradeService(readers *fakeGradeReaders, store *fakeSummaryStore, cache *CacheService, cfg GradeServiceConfig) *GradeService {
	svc := NewGradeService(readers.readers(), store, cache, NewMetricsService(), cfg, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func requireAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected typed error, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestGradeServiceCalculate(t *testing.T) {
	svc := newTestGradeService(newGradeFixture(), &fakeSummaryStore{}, nil, GradeServiceConfig{})

	roster, err := svc.Calculate(context.Background(), GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	require.Len(t, roster.Students, 3)

	assert.Equal(t, models.DefaultGradeWeights, roster.Weights)
	assert.Equal(t, models.WeightPolicyLiteral, roster.Policy)
	assert.False(t, roster.Cached)

	top := roster.Students[0]
	assert.Equal(t, "stu-1", top.StudentID)
	assert.Equal(t, 79.25, top.Percentage)
	assert.Equal(t, "C+", top.LetterGrade)

	rubricOnly := roster.Students[1]
	assert.Equal(t, "stu-3", rubricOnly.StudentID)
	require.NotNil(t, rubricOnly.MidtermScore)
	assert.InDelta(t, 90.0, *rubricOnly.MidtermScore, 0.0001)
	assert.Equal(t, 22.5, rubricOnly.Percentage)

	assert.Equal(t, "stu-2", roster.Students[2].StudentID)
	assert.Equal(t, 0.0, roster.Students[2].Percentage)
	assert.Equal(t, "F", roster.Students[2].LetterGrade)

	assert.Equal(t, 3, roster.Statistics.TotalStudents)
	assert.Equal(t, 1, roster.Statistics.Distribution.C)
	assert.Equal(t, 2, roster.Statistics.Distribution.F)
	assert.InDelta(t, 33.333, roster.Statistics.PassingRate, 0.001)
}

func TestGradeServiceCalculateRenormalizeQuery(t *testing.T) {
	svc := newTestGradeService(newGradeFixture(), &fakeSummaryStore{}, nil, GradeServiceConfig{})

	roster, err := svc.Calculate(context.Background(), GradeQuery{Term: "fall-2025", Policy: models.WeightPolicyRenormalize})
	require.NoError(t, err)
	assert.Equal(t, models.WeightPolicyRenormalize, roster.Policy)
	assert.Equal(t, "stu-3", roster.Students[0].StudentID)
	assert.Equal(t, 90.0, roster.Students[0].Percentage)
}

func TestGradeServiceCalculateValidation(t *testing.T) {
	svc := newTestGradeService(newGradeFixture(), &fakeSummaryStore{}, nil, GradeServiceConfig{})
	ctx := context.Background()

	_, err := svc.Calculate(ctx, GradeQuery{})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Calculate(ctx, GradeQuery{Term: "fall-2025", Policy: "curve"})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Calculate(ctx, GradeQuery{Term: "fall-2025", Weights: &models.GradeWeights{Midterm: -1}})
	requireAppError(t, err, appErrors.ErrInvalidWeights.Code)
}

func TestGradeServiceCalculateUpstreamFailure(t *testing.T) {
	readers := newGradeFixture()
	readers.journalErr = errors.New("connection refused")
	svc := newTestGradeService(readers, &fakeSummaryStore{}, nil, GradeServiceConfig{})

	roster, err := svc.Calculate(context.Background(), GradeQuery{Term: "fall-2025"})
	assert.Nil(t, roster)
	requireAppError(t, err, appErrors.ErrUpstreamRead.Code)
	assert.ErrorContains(t, err, "journal_grades")

	readers.journalErr = nil
	readers.enrollmentErr = errors.New("timeout")
	_, err = svc.Calculate(context.Background(), GradeQuery{Term: "fall-2025"})
	requireAppError(t, err, appErrors.ErrUpstreamRead.Code)
}

func TestGradeServiceCalculateEmptyTermSkipsSourceReads(t *testing.T) {
	readers := newGradeFixture()
	svc := newTestGradeService(readers, &fakeSummaryStore{}, nil, GradeServiceConfig{})

	roster, err := svc.Calculate(context.Background(), GradeQuery{Term: "spring-2030"})
	require.NoError(t, err)
	assert.Empty(t, roster.Students)
	assert.Equal(t, models.ClassStatistics{}, roster.Statistics)
	assert.Equal(t, int32(0), readers.assignmentCalls)
}

func TestGradeServiceCalculateUsesCache(t *testing.T) {
	readers := newGradeFixture()
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := newTestGradeService(readers, &fakeSummaryStore{}, cache, GradeServiceConfig{})
	ctx := context.Background()

	first, err := svc.Calculate(ctx, GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Calculate(ctx, GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), readers.enrollmentCalls)

	_, err = svc.Calculate(ctx, GradeQuery{Term: "fall-2025", Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), readers.enrollmentCalls)
}

func TestGradeServiceStudentDetail(t *testing.T) {
	svc := newTestGradeService(newGradeFixture(), &fakeSummaryStore{}, nil, GradeServiceConfig{})
	ctx := context.Background()

	detail, err := svc.StudentDetail(ctx, GradeQuery{Term: "fall-2025"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Baker", detail.StudentName)
	assert.Equal(t, "C+", detail.LetterGrade)

	_, err = svc.StudentDetail(ctx, GradeQuery{Term: "fall-2025"}, "stu-404")
	requireAppError(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.StudentDetail(ctx, GradeQuery{Term: "fall-2025"}, " ")
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestGradeServiceCommitSequential(t *testing.T) {
	store := &fakeSummaryStore{}
	svc := newTestGradeService(newGradeFixture(), store, nil, GradeServiceConfig{})

	result, err := svc.Commit(context.Background(), GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated)
	assert.False(t, result.Atomic)
	require.Len(t, store.upserted, 3)
	assert.Equal(t, "stu-1", store.upserted[0].StudentID)
	assert.Equal(t, 200.0, store.upserted[0].AssignmentPossible)
	assert.Equal(t, "C+", store.upserted[0].LetterGrade)
	for _, record := range store.upserted {
		assert.Equal(t, result.At, record.CalculatedAt)
	}
	assert.Empty(t, store.bulk)
}

func TestGradeServiceCommitSequentialStopsAtFirstFailure(t *testing.T) {
	store := &fakeSummaryStore{err: errors.New("row lock timeout"), failAfter: 1}
	svc := newTestGradeService(newGradeFixture(), store, nil, GradeServiceConfig{})

	result, err := svc.Commit(context.Background(), GradeQuery{Term: "fall-2025"})
	assert.Nil(t, result)
	requireAppError(t, err, appErrors.ErrCommitFailed.Code)
	assert.ErrorContains(t, err, "updated 1 of 3")
	assert.Len(t, store.upserted, 1)
	assert.Equal(t, uint64(1), svc.metrics.Snapshot().SummariesWritten)
}

func TestGradeServiceCommitAtomic(t *testing.T) {
	store := &fakeSummaryStore{}
	svc := newTestGradeService(newGradeFixture(), store, nil, GradeServiceConfig{CommitAtomic: true})

	result, err := svc.Commit(context.Background(), GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	assert.True(t, result.Atomic)
	require.Len(t, store.bulk, 1)
	assert.Len(t, store.bulk[0], 3)
	assert.Empty(t, store.upserted)

	store.err = errors.New("serialization failure")
	_, err = svc.Commit(context.Background(), GradeQuery{Term: "fall-2025"})
	requireAppError(t, err, appErrors.ErrCommitFailed.Code)
	assert.ErrorContains(t, err, "updated 0 of 3")
}

func TestGradeServiceCommitInvalidatesCache(t *testing.T) {
	readers := newGradeFixture()
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := newTestGradeService(readers, &fakeSummaryStore{}, cache, GradeServiceConfig{})
	ctx := context.Background()

	_, err := svc.Calculate(ctx, GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)

	_, err = svc.Commit(ctx, GradeQuery{Term: "fall-2025"})
	require.NoError(t, err)
	assert.Empty(t, repo.items)
	assert.Equal(t, []string{"roster:fall-2025:*"}, repo.patterns)
}

func TestGradeServiceCommitUpstreamFailureWritesNothing(t *testing.T) {
	readers := newGradeFixture()
	readers.journalErr = errors.New("boom")
	store := &fakeSummaryStore{}
	svc := newTestGradeService(readers, store, nil, GradeServiceConfig{})

	_, err := svc.Commit(context.Background(), GradeQuery{Term: "fall-2025"})
	requireAppError(t, err, appErrors.ErrUpstreamRead.Code)
	assert.Empty(t, store.upserted)
}

func TestGradeServiceCachedSummaries(t *testing.T) {
	store := &fakeSummaryStore{}
	svc := newTestGradeService(newGradeFixture(), store, nil, GradeServiceConfig{})
	ctx := context.Background()

	records, err := svc.CachedSummaries(ctx, "fall-2025")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	store.listErr = errors.New("db down")
	_, err = svc.CachedSummaries(ctx, "fall-2025")
	requireAppError(t, err, appErrors.ErrInternal.Code)

	_, err = svc.CachedSummaries(ctx, "")
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestNewGradeServiceDefaults(t *testing.T) {
	svc := NewGradeService(GradeReaders{}, nil, nil, nil, GradeServiceConfig{Policy: "bogus"}, nil, nil)
	weights, policy := svc.Defaults()
	assert.Equal(t, models.DefaultGradeWeights, weights)
	assert.Equal(t, models.WeightPolicyLiteral, policy)
}
