package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"model-abtest/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &service.ValidationError{Field: "variants", Reason: "bad"}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", service.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: abc", service.ErrNotFound), http.StatusNotFound},
		{"store", &service.StoreError{Op: "get_outcomes", Err: errors.New("timeout")}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestRequireOrgAndAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/read", RequireOrg(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/write", RequireOrg(), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func(method, path string, headers map[string]string) int {
		req := httptest.NewRequest(method, path, nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/read", nil))
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/read", map[string]string{HeaderOrgID: "o"}))
	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodPost, "/write", map[string]string{HeaderRole: RoleAdmin}))
	assert.Equal(t, http.StatusForbidden, serve(http.MethodPost, "/write", map[string]string{HeaderOrgID: "o", HeaderRole: "viewer"}))
	assert.Equal(t, http.StatusOK, serve(http.MethodPost, "/write", map[string]string{HeaderOrgID: "o", HeaderRole: RoleAdmin}))
}
