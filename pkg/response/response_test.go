package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

func TestJSONMergesMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, gin.H{"ok": true}, nil, map[string]interface{}{"cache_hit": true}, nil, map[string]interface{}{"processing_time_ms": 3})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["meta"]["cache_hit"])
	assert.EqualValues(t, 3, body["meta"]["processing_time_ms"])
}

func TestErrorUsesTypedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrUpstreamRead, "read enrollments"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_READ_FAILED")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Accepted(c, gin.H{"id": "job-1"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := Page(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, 5, p.TotalCount)

	page, _ = Page(items, 3, 2)
	assert.Equal(t, []int{5}, page)

	page, _ = Page(items, 9, 2)
	assert.Empty(t, page)

	page, p = Page(items, 0, 0)
	assert.Equal(t, items, page)
	assert.Equal(t, 1, p.Page)

	page, _ = Page([]int{}, 1, 0)
	assert.Empty(t, page)
}
