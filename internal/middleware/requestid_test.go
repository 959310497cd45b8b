package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDFor(t *testing.T, incoming string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(HeaderXRequestID, incoming)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	rid := rec.Header().Get(HeaderXRequestID)
	require.NotEmpty(t, rid)
	return rid
}

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	incoming := uuid.New().String()
	assert.Equal(t, incoming, requestIDFor(t, incoming))
}

func TestRequestIDReplacesMissingOrMalformedHeader(t *testing.T) {
	for _, incoming := range []string{"", "not-a-uuid", "1234", "<script>x</script>"} {
		rid := requestIDFor(t, incoming)
		assert.NotEqual(t, incoming, rid)
		_, err := uuid.Parse(rid)
		assert.NoError(t, err, "header %q", incoming)
	}
}
