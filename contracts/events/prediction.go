package events

import "errors"

// Prediction is the record published to the shared output topic. Field order
// is the wire order; echoed fields of the other source are left nil.
type Prediction struct {
	Timestamp         string   `json:"timestamp"`
	OriginalTimestamp *string  `json:"original_timestamp,omitempty"`
	Processor         string   `json:"processor"`
	MLModel           string   `json:"ml_model"`
	Source            string   `json:"source"`
	SensorID          *string  `json:"sensor_id,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	Humidity          *float64 `json:"humidity,omitempty"`
	UserID            *int64   `json:"user_id,omitempty"`
	Action            *string  `json:"action,omitempty"`
	PageID            *int64   `json:"page_id,omitempty"`
	MLPrediction      string   `json:"ml_prediction"`
	AlertLevel        string   `json:"alert_level"`
	AnomalyScore      int      `json:"anomaly_score"`
	AnomalyReasons    string   `json:"anomaly_reasons"`
	ProcessingEpoch   int64    `json:"processing_epoch"`
}

// SensorPrediction echoes a reading into a prediction skeleton.
func SensorPrediction(r SensorReading, model string) Prediction {
	return Prediction{
		OriginalTimestamp: &r.Timestamp,
		MLModel:           model,
		Source:            SourceSensorData,
		SensorID:          &r.SensorID,
		Temperature:       &r.Temperature,
		Humidity:          &r.Humidity,
	}
}

func UserPrediction(e UserEvent, model string) Prediction {
	return Prediction{
		MLModel: model,
		Source:  SourceUserEvents,
		UserID:  &e.UserID,
		Action:  &e.Action,
		PageID:  &e.PageID,
	}
}

func (p *Prediction) Validate() error {
	if p == nil {
		return errors.New("prediction must not be nil")
	}
	if p.Source == "" {
		return errors.New("source must be set")
	}
	if p.MLModel == "" {
		return errors.New("ml_model must be set")
	}
	if p.AlertLevel == "" {
		return errors.New("alert_level must be set")
	}
	if p.Timestamp == "" {
		return errors.New("timestamp must be set")
	}
	return nil
}
