package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeclub/portal-api/internal/models"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

type memoryCacheRepo struct {
	items    map[string]*models.GradeRoster
	patterns []string
	getErr   error
	setErr   error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string]*models.GradeRoster{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	roster, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*models.GradeRoster)) = *roster
	return nil
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = value.(*models.GradeRoster)
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func TestRosterKeyDistinguishesInputs(t *testing.T) {
	base := RosterKey("fall-2025", models.DefaultGradeWeights, models.WeightPolicyLiteral)
	assert.Equal(t, "roster:fall-2025:25-40-25-10:literal", base)
	assert.NotEqual(t, base, RosterKey("fall-2025", models.DefaultGradeWeights, models.WeightPolicyRenormalize))
	assert.NotEqual(t, base, RosterKey("spring-2026", models.DefaultGradeWeights, models.WeightPolicyLiteral))
	assert.NotEqual(t, base, RosterKey("fall-2025", models.GradeWeights{Midterm: 25.5, Assignments: 40, Journals: 25, Participation: 10}, models.WeightPolicyLiteral))
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()
	key := RosterKey("fall-2025", models.DefaultGradeWeights, models.WeightPolicyLiteral)

	_, ok := svc.GetRoster(ctx, key)
	assert.False(t, ok)

	svc.PutRoster(ctx, key, &models.GradeRoster{Term: "fall-2025"})
	roster, ok := svc.GetRoster(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "fall-2025", roster.Term)

	require.NoError(t, svc.InvalidateTerm(ctx, "fall-2025"))
	assert.Equal(t, []string{"roster:fall-2025:*"}, repo.patterns)
	_, ok = svc.GetRoster(ctx, key)
	assert.False(t, ok)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	svc.PutRoster(ctx, "k", &models.GradeRoster{})
	assert.Empty(t, repo.items)
	_, ok := svc.GetRoster(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, svc.InvalidateTerm(ctx, "fall-2025"))
	assert.Empty(t, repo.patterns)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceSwallowsBackendErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	repo.setErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, time.Second, nil, true)

	svc.PutRoster(context.Background(), "k", &models.GradeRoster{})
	_, ok := svc.GetRoster(context.Background(), "k")
	assert.False(t, ok)
}

func TestInvalidateTermEscapesGlobCharacters(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	require.NoError(t, svc.InvalidateTerm(context.Background(), "*"))
	require.NoError(t, svc.InvalidateTerm(context.Background(), "fall?[2025]"))
	require.NoError(t, svc.InvalidateTerm(context.Background(), `a\b`))
	assert.Equal(t, []string{
		`roster:\*:*`,
		`roster:fall\?\[2025\]:*`,
		`roster:a\\b:*`,
	}, repo.patterns)
}
