package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/profiles/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/profiles/:slug", "200"))
	for _, slug := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles/"+slug, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/profiles/:slug", "200"))
	assert.Equal(t, before+2, after)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpInFlight))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(quotaDenied.WithLabelValues("offer"))
	QuotaDenied("offer")
	assert.Equal(t, before+1, testutil.ToFloat64(quotaDenied.WithLabelValues("offer")))

	PaymentProcessed("subscription", "approved")
	assert.GreaterOrEqual(t, testutil.ToFloat64(paymentsProcessed.WithLabelValues("subscription", "approved")), 1.0)
}
