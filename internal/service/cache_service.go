package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gleeclub/portal-api/internal/models"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

// CacheRepository abstracts the key/value store behind the roster cache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches computed grade rosters. A disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// RosterKey identifies a roster computed for a term under specific weights and policy.
func RosterKey(term string, weights models.GradeWeights, policy models.WeightPolicy) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf("roster:%s:%s-%s-%s-%s:%s", term, f(weights.Midterm), f(weights.Assignments), f(weights.Journals), f(weights.Participation), policy)
}

// globEscaper quotes the characters Redis MATCH patterns treat as special.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func termPattern(term string) string {
	return fmt.Sprintf("roster:%s:*", globEscaper.Replace(term))
}

// GetRoster loads a cached roster. It returns false on a miss or when caching is off.
func (s *CacheService) GetRoster(ctx context.Context, key string) (*models.GradeRoster, bool) {
	if !s.Enabled() {
		return nil, false
	}
	var roster models.GradeRoster
	start := time.Now()
	err := s.repo.Get(ctx, key, &roster)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("roster cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &roster, true
}

// PutRoster stores a roster. Failures are logged and otherwise ignored.
func (s *CacheService) PutRoster(ctx context.Context, key string, roster *models.GradeRoster) {
	if !s.Enabled() || roster == nil {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, roster, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("roster cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateTerm drops every cached roster of a term.
func (s *CacheService) InvalidateTerm(ctx context.Context, term string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, termPattern(term)); err != nil {
		s.logger.Warn("roster cache invalidate failed", zap.String("term", term), zap.Error(err))
		return err
	}
	return nil
}
