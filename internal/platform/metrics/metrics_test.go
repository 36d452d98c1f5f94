package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"studytrack/internal/platform/metrics"
)

func TestCollectorsPassLint(t *testing.T) {
	t.Parallel()
	collectors := map[string]prometheus.Collector{
		"sync_requests":            metrics.SyncRequests,
		"sync_duration":            metrics.SyncDuration,
		"breaker_state":            metrics.CircuitBreakerState,
		"outbox_depth":             metrics.OutboxDepth,
		"outbox_evictions":         metrics.OutboxEvictions,
		"outbox_delivered":         metrics.OutboxDelivered,
		"sessions_logged":          metrics.SessionsLogged,
		"sessions_discarded":       metrics.SessionsDiscarded,
		"heartbeats":               metrics.Heartbeats,
		"progress_upserts":         metrics.ProgressUpserts,
		"notifications_suppressed": metrics.NotificationsSuppressed,
	}
	for name, c := range collectors {
		problems, err := testutil.CollectAndLint(c)
		if err != nil {
			t.Fatalf("%s: lint: %v", name, err)
		}
		if len(problems) > 0 {
			t.Fatalf("%s: lint problems: %+v", name, problems)
		}
	}
}

func TestLabelledCountersAreIndependent(t *testing.T) {
	t.Parallel()
	metrics.OutboxEvictions.WithLabelValues("pendingStudyLogs").Inc()
	metrics.OutboxEvictions.WithLabelValues("pendingStudyLogs").Inc()
	metrics.OutboxEvictions.WithLabelValues("offline_progress").Inc()
	if got := testutil.ToFloat64(metrics.OutboxEvictions.WithLabelValues("pendingStudyLogs")); got != 2 {
		t.Fatalf("expected 2 session log evictions, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.OutboxEvictions.WithLabelValues("offline_progress")); got != 1 {
		t.Fatalf("expected 1 progress eviction, got %v", got)
	}
}
