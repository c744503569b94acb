package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"CacheRequestsTotal", CacheRequestsTotal},
		{"CacheEvictionsTotal", CacheEvictionsTotal},
		{"ProcessSpawnsTotal", ProcessSpawnsTotal},
		{"ProcessFailuresTotal", ProcessFailuresTotal},
		{"ProcessesRunning", ProcessesRunning},
		{"JobsTotal", JobsTotal},
		{"JobDuration", JobDuration},
		{"JobsActive", JobsActive},
		{"CaptionExtractionsTotal", CaptionExtractionsTotal},
		{"UploadsStoredTotal", UploadsStoredTotal},
		{"UploadsRejectedTotal", UploadsRejectedTotal},
		{"UploadsReapedTotal", UploadsReapedTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestCounterVecIncrements(t *testing.T) {
	counter := JobsTotal.WithLabelValues("direct", "completed")
	before := testutil.ToFloat64(counter)
	counter.Inc()
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Fatalf("expected counter to increase by 1, got %v -> %v", before, got)
	}
}
