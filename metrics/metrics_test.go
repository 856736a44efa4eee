package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/genres", "200"))
	RecordAPIRequest("GET", "/api/genres", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/genres", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestRecordFallbackAndTrackedView(t *testing.T) {
	RecordFallback("history", "no_history")
	if got := testutil.ToFloat64(RecommendFallbacks.WithLabelValues("history", "no_history")); got < 1 {
		t.Errorf("fallbacks = %v, want >= 1", got)
	}

	before := testutil.ToFloat64(TrackedViews.WithLabelValues("duplicate"))
	RecordTrackedView(false)
	if got := testutil.ToFloat64(TrackedViews.WithLabelValues("duplicate")); got-before != 1 {
		t.Errorf("tracked duplicate delta = %v, want 1", got-before)
	}
}

func TestObserveBuildStage(t *testing.T) {
	ObserveBuildStage("load", time.Second)
	if n := testutil.CollectAndCount(BuildDuration); n < 1 {
		t.Errorf("build duration series = %d, want >= 1", n)
	}
}
