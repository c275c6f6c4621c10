package processor

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/GitWithJosh/cloud-computing-vl/contracts/events"
	"github.com/GitWithJosh/cloud-computing-vl/internal/rules"
)

const ProcessorID = "kafka-streams"

// Output is one record for the shared sink. An empty Key means the record is
// written without an explicit key.
type Output struct {
	Key   string
	Value []byte
}

type Encoder struct {
	now func() time.Time
}

func NewEncoder() Encoder {
	return Encoder{now: time.Now}
}

// NewEncoderWithClock is used where processing timestamps must be fixed.
func NewEncoderWithClock(now func() time.Time) Encoder {
	return Encoder{now: now}
}

// Encode flattens a verdict into the prediction and serializes it. A NORMAL
// verdict yields ok == false and no output.
func (e Encoder) Encode(key string, v rules.Verdict, p events.Prediction) (Output, bool, error) {
	if v.IsNormal() {
		return Output{}, false, nil
	}

	now := e.now().UTC()
	p.Timestamp = now.Format(time.RFC3339Nano)
	p.ProcessingEpoch = now.Unix()
	p.Processor = ProcessorID
	p.MLPrediction = v.Prediction
	p.AlertLevel = v.Level.String()
	p.AnomalyScore = v.Score
	p.AnomalyReasons = v.Reasons.String()

	if err := p.Validate(); err != nil {
		return Output{}, false, &EncodeError{Source: p.Source, Err: err}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return Output{}, false, &EncodeError{Source: p.Source, Err: err}
	}

	return Output{Key: key, Value: data}, true, nil
}
