package sensor

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/GitWithJosh/cloud-computing-vl/contracts/events"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
	"github.com/GitWithJosh/cloud-computing-vl/internal/rules"
)

const Model = "threshold-anomaly-detector-v1.0"

type Handler struct {
	evaluator rules.SensorEvaluator
	encoder   processor.Encoder
	log       zerolog.Logger
}

func NewHandler(encoder processor.Encoder, log zerolog.Logger) Handler {
	return NewHandlerWithThresholds(rules.DefaultSensorThresholds(), encoder, log)
}

func NewHandlerWithThresholds(t rules.SensorThresholds, encoder processor.Encoder, log zerolog.Logger) Handler {
	return Handler{
		evaluator: rules.NewSensorEvaluator(t),
		encoder:   encoder,
		log:       log.With().Str("source", events.SourceSensorData).Logger(),
	}
}

func (h Handler) Source() string {
	return events.SourceSensorData
}

func (h Handler) Handle(key, value []byte) (processor.Outcome, error) {
	reading, err := events.DecodeSensorReading(value)
	if err != nil {
		return processor.Outcome{}, &processor.DecodeError{Source: h.Source(), Err: err}
	}

	verdict := h.evaluator.Evaluate(reading.Temperature, reading.Humidity)
	h.log.Info().
		Str("sensor_id", reading.SensorID).
		Str("alert_level", verdict.Level.String()).
		Int("anomaly_score", verdict.Score).
		Msg(Status(reading, verdict))

	recordKey := reading.SensorID
	if recordKey == "" {
		recordKey = string(key)
	}

	out, ok, err := h.encoder.Encode(recordKey, verdict, events.SensorPrediction(reading, Model))
	if err != nil {
		return processor.Outcome{Verdict: verdict}, err
	}
	return processor.Outcome{Verdict: verdict, Output: out, Emit: ok}, nil
}

// Status is the audit line written for every evaluated reading.
func Status(r events.SensorReading, v rules.Verdict) string {
	label := "ANOMALY DETECTED"
	if v.IsNormal() {
		label = "NORMAL"
	}
	return fmt.Sprintf("%s: %s - %s (T:%s°C, H:%s%%, Score:%d)",
		label, r.SensorID, v.Level, formatFloat(r.Temperature), formatFloat(r.Humidity), v.Score)
}

// formatFloat keeps one decimal on whole values, so 36 renders as "36.0".
func formatFloat(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
