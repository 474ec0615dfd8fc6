package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeclub/portal-api/internal/dto"
	"github.com/gleeclub/portal-api/internal/models"
	"github.com/gleeclub/portal-api/internal/service"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error

	lastReq   dto.ReportRequest
	lastActor string
	lastRole  models.UserRole
}

func (m *reportServiceMock) CreateJob(_ context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	m.lastReq = req
	m.lastActor = actorID
	return m.createResp, m.createErr
}

func (m *reportServiceMock) GetStatus(_ context.Context, _ string, actor *models.JWTClaims) (*dto.ReportStatusResponse, error) {
	m.lastActor = actor.UserID()
	m.lastRole = actor.Role
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestReportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued}}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(map[string]string{"term": "fall", "format": "PDF"})
	c, w := newGinContext(http.MethodPost, "/reports/grades", payload)
	withClaims(c, "inst-1", models.RoleInstructor)

	handler.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ReportFormatPDF, mockSvc.lastReq.Format)
	assert.Equal(t, "inst-1", mockSvc.lastActor)
	assert.Contains(t, w.Body.String(), "job-1")
}

func TestReportHandlerCreateRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "bad")})

	c, w := newGinContext(http.MethodPost, "/reports/grades", []byte(`{}`))
	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/reports/grades", []byte(`{"term":`))
	withClaims(c, "inst-1", models.RoleInstructor)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/reports/grades", []byte(`{"term":"fall","format":"csv"}`))
	withClaims(c, "inst-1", models.RoleInstructor)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{statusResp: &dto.ReportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished, Progress: 100}}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	withClaims(c, "admin-1", models.RoleAdmin)

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, mockSvc.lastRole)
	assert.Equal(t, "admin-1", mockSvc.lastActor)

	mockSvc.statusErr = appErrors.ErrForbidden
	c, w = newGinContext(http.MethodGet, "/reports/job-1", nil)
	withClaims(c, "inst-2", models.RoleInstructor)
	handler.Status(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("Student Name\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	handler := NewReportHandler(&reportServiceMock{download: &service.ReportDownload{
		File:        file,
		Filename:    "roster.csv",
		ContentType: "text/csv; charset=utf-8",
		ExpiresAt:   time.Now().Add(time.Hour),
	}})

	c, w := newGinContext(http.MethodGet, "/reports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="roster.csv"`)
	assert.Equal(t, "Student Name\n", w.Body.String())
}

func TestReportHandlerDownloadErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})

	c, w := newGinContext(http.MethodGet, "/reports/download/", nil)
	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/reports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
