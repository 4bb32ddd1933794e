package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("http_test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, provider.Shutdown(context.Background())) })

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "http_test"))
	router.GET("/v1/outbox/messages/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.POST("/v1/outbox/messages/:id/requeue", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	for _, path := range []string{"/v1/outbox/messages/a", "/v1/outbox/messages/b", "/nowhere", "/also/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/outbox/messages/a/requeue", nil))

	output := scrape(t, provider)

	assertBizMetricLine(t, output, `http_test_http_requests_total`,
		`method="GET".*path="/v1/outbox/messages/:id".*status_code="200"`, `2`)
	assertBizMetricLine(t, output, `http_test_http_requests_total`,
		`method="GET".*path="unmatched".*status_code="404"`, `2`)
	assertBizMetricLine(t, output, `http_test_http_requests_total`,
		`method="POST".*path="/v1/outbox/messages/:id/requeue".*status_code="409"`, `1`)
	assertBizMetricLine(t, output, `http_test_http_requests_in_flight`, ``, `0`)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/users/:id", routeLabel("/v1/users/:id"))
	assert.Equal(t, "/", routeLabel("/"))
	assert.Equal(t, "unmatched", routeLabel(""))
}
