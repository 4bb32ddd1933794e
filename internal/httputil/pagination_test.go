package httputil_test

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/allisson/eventledger/internal/httputil"
)

func newContext(url string) *gin.Context {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, url, nil)
	return c
}

func TestParseLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		url           string
		expectedLimit int
		expectError   bool
		errorMsg      string
	}{
		{
			name:          "default value",
			url:           "/",
			expectedLimit: 50,
		},
		{
			name:          "valid custom value",
			url:           "/?limit=20",
			expectedLimit: 20,
		},
		{
			name:          "max limit",
			url:           "/?limit=1000",
			expectedLimit: 1000,
		},
		{
			name:        "limit zero",
			url:         "/?limit=0",
			expectError: true,
			errorMsg:    "invalid limit parameter: must be between 1 and 1000",
		},
		{
			name:        "limit exceeds max",
			url:         "/?limit=1001",
			expectError: true,
			errorMsg:    "invalid limit parameter: must be between 1 and 1000",
		},
		{
			name:        "limit not an integer",
			url:         "/?limit=xyz",
			expectError: true,
			errorMsg:    "invalid limit parameter: must be between 1 and 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, err := httputil.ParseLimit(newContext(tt.url))

			if tt.expectError {
				assert.EqualError(t, err, tt.errorMsg)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedLimit, limit)
		})
	}
}

func TestParseIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	days, err := httputil.ParseIntQuery(newContext("/?days=0"), "days", 7, 0, math.MaxInt32)
	assert.NoError(t, err)
	assert.Equal(t, 0, days)

	days, err = httputil.ParseIntQuery(newContext("/"), "days", 7, 0, math.MaxInt32)
	assert.NoError(t, err)
	assert.Equal(t, 7, days)

	_, err = httputil.ParseIntQuery(newContext("/?days=-1"), "days", 7, 0, math.MaxInt32)
	assert.ErrorContains(t, err, "invalid days parameter")
}

func TestRequireIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	days, err := httputil.RequireIntQuery(newContext("/?days=0"), "days", 0, math.MaxInt32)
	assert.NoError(t, err)
	assert.Equal(t, 0, days)

	_, err = httputil.RequireIntQuery(newContext("/"), "days", 0, math.MaxInt32)
	assert.ErrorContains(t, err, "missing days parameter")

	_, err = httputil.RequireIntQuery(newContext("/?days="), "days", 0, math.MaxInt32)
	assert.ErrorContains(t, err, "missing days parameter")

	_, err = httputil.RequireIntQuery(newContext("/?days=abc"), "days", 0, math.MaxInt32)
	assert.ErrorContains(t, err, "invalid days parameter")
}

func TestParseBoolQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		url       string
		expected  bool
		expectErr bool
	}{
		{url: "/", expected: false},
		{url: "/?dry_run=true", expected: true},
		{url: "/?dry_run=1", expected: true},
		{url: "/?dry_run=false", expected: false},
		{url: "/?dry_run=maybe", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			value, err := httputil.ParseBoolQuery(newContext(tt.url), "dry_run", false)
			if tt.expectErr {
				assert.ErrorContains(t, err, "invalid dry_run parameter")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}
}
