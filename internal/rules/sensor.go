package rules

type SensorThresholds struct {
	CriticalHighTemp float64
	CriticalLowTemp  float64
	WarnHighTemp     float64
	WarnLowTemp      float64
	HighHumidity     float64
	LowHumidity      float64

	CriticalDelta int
	WarnDelta     int
	HumidityDelta int

	// Scores above AnomalyScore are labelled ANOMALY_DETECTED.
	AnomalyScore int
}

func DefaultSensorThresholds() SensorThresholds {
	return SensorThresholds{
		CriticalHighTemp: 35,
		CriticalLowTemp:  5,
		WarnHighTemp:     30,
		WarnLowTemp:      10,
		HighHumidity:     85,
		LowHumidity:      10,
		CriticalDelta:    3,
		WarnDelta:        1,
		HumidityDelta:    2,
		AnomalyScore:     2,
	}
}

type SensorEvaluator struct {
	temperature []rule
	humidity    []rule
	anomaly     int
}

func NewSensorEvaluator(t SensorThresholds) SensorEvaluator {
	return SensorEvaluator{
		temperature: []rule{
			{match: func(v float64) bool { return v > t.CriticalHighTemp }, delta: t.CriticalDelta, level: Critical, reason: HighTemperature},
			{match: func(v float64) bool { return v < t.CriticalLowTemp }, delta: t.CriticalDelta, level: Critical, reason: LowTemperature},
			{match: func(v float64) bool { return v > t.WarnHighTemp || v < t.WarnLowTemp }, delta: t.WarnDelta, level: Warning, reason: TempWarning},
		},
		humidity: []rule{
			{match: func(v float64) bool { return v > t.HighHumidity }, delta: t.HumidityDelta, level: Warning, reason: HighHumidity},
			{match: func(v float64) bool { return v < t.LowHumidity }, delta: t.HumidityDelta, level: Warning, reason: LowHumidity},
		},
		anomaly: t.AnomalyScore,
	}
}

// Evaluate scores one reading. The temperature group is applied before the
// humidity group; within a group the first matching rule wins.
func (e SensorEvaluator) Evaluate(temperature, humidity float64) Verdict {
	var v Verdict
	v.applyFirst(e.temperature, temperature)
	v.applyFirst(e.humidity, humidity)

	switch {
	case v.Score == 0:
		v.Level = Normal
	case v.Score > e.anomaly:
		v.Prediction = PredictionAnomaly
	default:
		v.Prediction = PredictionWarning
	}
	return v
}
