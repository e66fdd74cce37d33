package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("drums:overdue_scan").End(errors.New("boom"))

	body := scrape(t, metrics)
	if !strings.Contains(body, `drumtrack_jobs_total{job="drums:overdue_scan",status="failure"} 1`) {
		t.Fatalf("expected job run to be recorded, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "drumtrack_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "drumtrack_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestLifecycleCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ReturnRequestCreated("High")
	metrics.ReturnRequestTransitioned("Pending", "Approved")
	metrics.Jobs().SetDrumCategories([]string{"Active", "DueSoon", "Overdue"}, map[string]int{"Overdue": 3}, time.Unix(100, 0))

	body := scrape(t, metrics)
	for _, want := range []string{
		`drumtrack_return_requests_created_total{priority="High"} 1`,
		`drumtrack_return_request_transitions_total{from="Pending",to="Approved"} 1`,
		`drumtrack_drums{category="Overdue"} 3`,
		`drumtrack_drums{category="Active"} 0`,
		`drumtrack_overdue_scan_timestamp_seconds 100`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}

	var nilMetrics *Metrics
	nilMetrics.ReturnRequestCreated("Normal")
}
