package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T) (*gin.Engine, *logger.Logger) {
	gin.SetMode(gin.TestMode)
	log := &logger.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}

	router := gin.New()
	router.Use(RequestLogging(log))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": RequestID(c),
			"scoped":     Logger(c, log) != log,
		})
	})
	return router, log
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Contains(t, w.Body.String(), id)
	assert.Contains(t, w.Body.String(), `"scoped":true`)
}

func TestRequestLogging_HonoursIncomingRequestID(t *testing.T) {
	router, _ := newTestRouter(t)
	incoming := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))
}

func TestRequestLogging_ReplacesMalformedRequestID(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "../../etc/passwd")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEqual(t, "../../etc/passwd", w.Header().Get(RequestIDHeader))
}

func TestLogger_FallbackOutsideMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fallback := &logger.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Same(t, fallback, Logger(c, fallback))
	assert.Empty(t, RequestID(c))
}
