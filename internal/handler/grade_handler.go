package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gleeclub/portal-api/internal/dto"
	"github.com/gleeclub/portal-api/internal/middleware"
	"github.com/gleeclub/portal-api/internal/models"
	"github.com/gleeclub/portal-api/internal/service"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
	"github.com/gleeclub/portal-api/pkg/response"
)

const maxSummaryPageSize = 500

type gradeService interface {
	Calculate(ctx context.Context, query service.GradeQuery) (*models.GradeRoster, error)
	StudentDetail(ctx context.Context, query service.GradeQuery, studentID string) (*models.StudentGradeSummary, error)
	Commit(ctx context.Context, query service.GradeQuery) (*models.CommitResult, error)
	CachedSummaries(ctx context.Context, term string) ([]models.GradeSummaryRecord, error)
	Defaults() (models.GradeWeights, models.WeightPolicy)
}

// GradeHandler exposes the term gradebook endpoints.
type GradeHandler struct {
	grades gradeService
	logger *zap.Logger
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService, logger *zap.Logger) *GradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeHandler{grades: grades, logger: logger}
}

// Calculate godoc
// @Summary Compute the grade roster for a term
// @Description Weights default to the configured course weights; each may be overridden.
// @Tags Grades
// @Produce json
// @Param term path string true "Term"
// @Param midterm query number false "Midterm weight"
// @Param assignments query number false "Assignments weight"
// @Param journals query number false "Journals weight"
// @Param participation query number false "Participation weight"
// @Param policy query string false "literal or renormalize"
// @Param refresh query bool false "Bypass the roster cache"
// @Success 200 {object} response.Envelope{data=models.GradeRoster}
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /grades/terms/{term} [get]
func (h *GradeHandler) Calculate(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	roster, err := h.grades.Calculate(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, roster.Cached)
	response.JSON(c, http.StatusOK, roster, nil, middleware.ExtractMeta(c))
}

// StudentDetail godoc
// @Summary Grade breakdown for one student
// @Tags Grades
// @Produce json
// @Param term path string true "Term"
// @Param studentId path string true "Student ID"
// @Param policy query string false "literal or renormalize"
// @Success 200 {object} response.Envelope{data=models.StudentGradeSummary}
// @Failure 404 {object} response.Envelope
// @Router /grades/terms/{term}/students/{studentId} [get]
func (h *GradeHandler) StudentDetail(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	summary, err := h.grades.StudentDetail(c.Request.Context(), query, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Commit godoc
// @Summary Recompute and upsert grade summaries for a term
// @Tags Grades
// @Accept json
// @Produce json
// @Param term path string true "Term"
// @Param payload body dto.CommitRequest false "Weights and policy"
// @Success 200 {object} response.Envelope{data=models.CommitResult}
// @Failure 502 {object} response.Envelope
// @Router /grades/terms/{term}/summaries [post]
func (h *GradeHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	query := service.GradeQuery{Term: c.Param("term"), Weights: req.Weights, Policy: req.Policy}
	result, err := h.grades.Commit(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor := ""
	if claims := claimsFromContext(c); claims != nil {
		actor = claims.UserID()
	}
	h.logger.Info("grade summaries committed",
		zap.String("term", result.Term),
		zap.Int("updated", result.Updated),
		zap.String("actor", actor),
	)
	response.JSON(c, http.StatusOK, result, nil)
}

// CachedSummaries godoc
// @Summary List committed grade summaries for a term
// @Tags Grades
// @Produce json
// @Param term path string true "Term"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.GradeSummaryRecord}
// @Router /grades/terms/{term}/summaries [get]
func (h *GradeHandler) CachedSummaries(c *gin.Context) {
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.grades.CachedSummaries(c.Request.Context(), c.Param("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination := response.Page(records, page, size)
	response.JSON(c, http.StatusOK, items, pagination)
}

func (h *GradeHandler) bindQuery(c *gin.Context) (service.GradeQuery, bool) {
	var params dto.GradeQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return service.GradeQuery{}, false
	}
	defaults, _ := h.grades.Defaults()
	return service.GradeQuery{
		Term:    c.Param("term"),
		Weights: params.Weights(defaults),
		Policy:  models.WeightPolicy(strings.ToLower(string(params.Policy))),
		Refresh: params.Refresh,
	}, true
}

func pageParams(c *gin.Context) (int, int, error) {
	page, size := 1, 100
	if raw := c.Query("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		page = v
	}
	if raw := c.Query("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSummaryPageSize {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, "page_size must be between 1 and 500")
		}
		size = v
	}
	return page, size, nil
}
