package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.HandleFunc("/v1/tenant/{tenant_id}/apply", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}).Methods(http.MethodPost)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/tenant/{tenant_id}/apply", "409"))
	req := httptest.NewRequest(http.MethodPost, "/v1/tenant/abc123/apply", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/tenant/{tenant_id}/apply", "409"))
	assert.Equal(t, before+1, after)
}

func TestObserveTeamOperation(t *testing.T) {
	c := teamOperations.WithLabelValues("apply", "already_requested")
	before := testutil.ToFloat64(c)
	ObserveTeamOperation("apply", "already_requested")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
