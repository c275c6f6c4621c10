package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Consumed("sensor-data")
	r.Consumed("sensor-data")
	r.Consumed("user-events")
	r.Dropped("sensor-data", "decode")
	r.Emitted("sensor-data", "CRITICAL")
	r.MirrorFailed("postgres-archive")
	r.Processed("sensor-data", 3*time.Millisecond)

	if got := testutil.ToFloat64(r.consumed.WithLabelValues("sensor-data")); got != 2 {
		t.Errorf("consumed sensor-data = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.consumed.WithLabelValues("user-events")); got != 1 {
		t.Errorf("consumed user-events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.dropped.WithLabelValues("sensor-data", "decode")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.emitted.WithLabelValues("sensor-data", "CRITICAL")); got != 1 {
		t.Errorf("emitted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.mirrorFail.WithLabelValues("postgres-archive")); got != 1 {
		t.Errorf("mirror failures = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.latency, "stream_processing_seconds"); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg).Consumed("sensor-data")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"message": "Healthchecked successfully"}` {
		t.Fatalf("unexpected healthcheck response %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `stream_events_consumed_total{source="sensor-data"} 1`) {
		t.Fatalf("expected consumed counter in scrape, got:\n%s", body)
	}
}

func TestServerStopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", prometheus.NewRegistry(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
