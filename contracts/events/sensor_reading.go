package events

import "fmt"

const SourceSensorData = "sensor-data"

type SensorReading struct {
	SensorID    string  `json:"sensor_id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

type rawSensorReading struct {
	SensorID    *text   `json:"sensor_id" validate:"required"`
	Temperature *number `json:"temperature" validate:"required"`
	Humidity    *number `json:"humidity" validate:"required"`
	Timestamp   *text   `json:"timestamp" validate:"required"`
}

// DecodeSensorReading parses one sensor-data record. All four fields are
// required; numeric fields may be sent as numbers or numeric strings.
func DecodeSensorReading(raw []byte) (SensorReading, error) {
	var r rawSensorReading
	if err := decodeInto(raw, &r); err != nil {
		return SensorReading{}, fmt.Errorf("decode sensor reading: %w", err)
	}

	return SensorReading{
		SensorID:    string(*r.SensorID),
		Temperature: float64(*r.Temperature),
		Humidity:    float64(*r.Humidity),
		Timestamp:   string(*r.Timestamp),
	}, nil
}
