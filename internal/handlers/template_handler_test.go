package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplateRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewTemplateHandler()
	router := gin.New()
	router.GET("/api/products/import-template", handler.GetImportTemplate)
	return router
}

func TestGetImportTemplateJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products/import-template", nil)
	w := httptest.NewRecorder()
	newTemplateRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"sku"`)
	assert.Contains(t, body, `"name"`)
	assert.Contains(t, body, `"description"`)
	assert.Contains(t, body, `"price"`)
}

func TestGetImportTemplateCSV(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products/import-template?format=csv", nil)
	w := httptest.NewRecorder()
	newTemplateRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "sku,name,description,price\n", w.Body.String())
}

func TestGetImportTemplateXLSX(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products/import-template?format=xlsx", nil)
	w := httptest.NewRecorder()
	newTemplateRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, w.Body.Len())
}
