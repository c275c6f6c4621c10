package sensor

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/GitWithJosh/cloud-computing-vl/contracts/events"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
	"github.com/GitWithJosh/cloud-computing-vl/internal/rules"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newTestHandler(buf *bytes.Buffer, now time.Time) Handler {
	enc := processor.NewEncoderWithClock(func() time.Time { return now })
	return NewHandler(enc, zerolog.New(buf))
}

func TestHandleAnomalousReading(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(&buf, fixedNow)

	raw := []byte(`{"sensor_id":"s-1","temperature":36,"humidity":90,"timestamp":"2024-05-01T12:29:59Z"}`)
	outcome, err := h.Handle([]byte("input-key"), raw)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !outcome.Emit {
		t.Fatal("expected anomalous reading to be emitted")
	}
	if outcome.Output.Key != "s-1" {
		t.Fatalf("expected key s-1, got %q", outcome.Output.Key)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(outcome.Output.Value, &got); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}

	want := map[string]interface{}{
		"timestamp":          "2024-05-01T12:30:00Z",
		"original_timestamp": "2024-05-01T12:29:59Z",
		"processor":          "kafka-streams",
		"ml_model":           Model,
		"source":             "sensor-data",
		"sensor_id":          "s-1",
		"temperature":        float64(36),
		"humidity":           float64(90),
		"ml_prediction":      "ANOMALY_DETECTED",
		"alert_level":        "CRITICAL",
		"anomaly_score":      float64(5),
		"anomaly_reasons":    `["HIGH_TEMPERATURE","HIGH_HUMIDITY"]`,
		"processing_epoch":   float64(fixedNow.Unix()),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected output\n got: %v\nwant: %v", got, want)
	}

	if !strings.Contains(buf.String(), "ANOMALY DETECTED: s-1 - CRITICAL (T:36.0°C, H:90.0%, Score:5)") {
		t.Fatalf("expected anomaly audit line, got %s", buf.String())
	}
}

func TestHandleNormalReading(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(&buf, fixedNow)

	outcome, err := h.Handle(nil, []byte(`{"sensor_id":"s-2","temperature":21.5,"humidity":40,"timestamp":"t"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Emit || len(outcome.Output.Value) != 0 {
		t.Fatalf("expected no output for normal reading, got %+v", outcome)
	}
	if !strings.Contains(buf.String(), "NORMAL: s-2 - NORMAL (T:21.5°C, H:40.0%, Score:0)") {
		t.Fatalf("expected normal audit line, got %s", buf.String())
	}
}

func TestHandleMalformedReading(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(&buf, fixedNow)

	_, err := h.Handle(nil, []byte(`{"sensor_id":"s-3","humidity":40,"timestamp":"t"}`))
	var decodeErr *processor.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Source != events.SourceSensorData {
		t.Fatalf("expected sensor source, got %s", decodeErr.Source)
	}
	if !errors.Is(err, events.ErrMissingField) {
		t.Fatalf("expected missing field cause, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no audit line for undecodable record, got %s", buf.String())
	}
}

func TestHandleFallsBackToInputKey(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(&buf, fixedNow)

	outcome, err := h.Handle([]byte("partition-key"), []byte(`{"sensor_id":"","temperature":40,"humidity":50,"timestamp":"t"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Output.Key != "partition-key" {
		t.Fatalf("expected input key fallback, got %q", outcome.Output.Key)
	}
}

func TestHandleIsIdempotentExceptClock(t *testing.T) {
	raw := []byte(`{"sensor_id":"s-1","temperature":32,"humidity":5,"timestamp":"t0"}`)

	var buf bytes.Buffer
	first, err := newTestHandler(&buf, fixedNow).Handle(nil, raw)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	second, err := newTestHandler(&buf, fixedNow.Add(90*time.Second)).Handle(nil, raw)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if !reflect.DeepEqual(first.Verdict, second.Verdict) {
		t.Fatalf("verdicts differ: %+v vs %+v", first.Verdict, second.Verdict)
	}

	var a, b map[string]interface{}
	if err := json.Unmarshal(first.Output.Value, &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second.Output.Value, &b); err != nil {
		t.Fatal(err)
	}
	if a["timestamp"] == b["timestamp"] {
		t.Fatal("expected processing timestamps to differ")
	}
	for _, k := range []string{"timestamp", "processing_epoch"} {
		delete(a, k)
		delete(b, k)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("outputs differ beyond clock fields:\n%v\n%v", a, b)
	}
	if a["anomaly_reasons"] != `["TEMP_WARNING","LOW_HUMIDITY"]` || a["alert_level"] != "WARNING" {
		t.Fatalf("unexpected classification %v", a)
	}
}

func TestStatus(t *testing.T) {
	r := events.SensorReading{SensorID: "s-9", Temperature: 4, Humidity: 50}
	v := rules.Verdict{Level: rules.Critical, Score: 3}
	if got := Status(r, v); got != "ANOMALY DETECTED: s-9 - CRITICAL (T:4.0°C, H:50.0%, Score:3)" {
		t.Fatalf("unexpected status %q", got)
	}

	r = events.SensorReading{SensorID: "s-3", Temperature: 30.25, Humidity: 0}
	if got := Status(r, rules.Verdict{Level: rules.Warning, Score: 2}); got != "ANOMALY DETECTED: s-3 - WARNING (T:30.25°C, H:0.0%, Score:2)" {
		t.Fatalf("unexpected status %q", got)
	}
}
