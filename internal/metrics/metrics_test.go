package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveLedgerOp(t *testing.T) {
	before := testutil.ToFloat64(ledgerOps.WithLabelValues("join", "error", "NOT_OPEN"))
	ObserveLedgerOp("join", time.Now(), "NOT_OPEN")
	require.Equal(t, before+1, testutil.ToFloat64(ledgerOps.WithLabelValues("join", "error", "NOT_OPEN")))

	before = testutil.ToFloat64(ledgerOps.WithLabelValues("join", "success", ""))
	ObserveLedgerOp("join", time.Now(), "")
	require.Equal(t, before+1, testutil.ToFloat64(ledgerOps.WithLabelValues("join", "success", "")))
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware)
	r.GET("/teams/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	counter := httpRequests.WithLabelValues("/teams/:id", http.MethodGet, "204")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teams/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, before+1, testutil.ToFloat64(counter))

	ObserveLedgerOp("leave", time.Now(), "")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ledger_operations_total")
}
