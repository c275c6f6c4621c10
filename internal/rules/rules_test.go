package rules

import (
	"reflect"
	"testing"
)

func TestSensorEvaluator(t *testing.T) {
	eval := NewSensorEvaluator(DefaultSensorThresholds())

	tests := []struct {
		name        string
		temperature float64
		humidity    float64
		level       Level
		score       int
		reasons     Reasons
		prediction  string
	}{
		{"normal", 20, 50, Normal, 0, nil, ""},
		{"normal lower edges", 10, 10, Normal, 0, nil, ""},
		{"normal upper edges", 30, 85, Normal, 0, nil, ""},
		{"high temperature", 36, 50, Critical, 3, Reasons{HighTemperature}, PredictionWarning},
		{"high temperature and humidity", 36, 90, Critical, 5, Reasons{HighTemperature, HighHumidity}, PredictionAnomaly},
		{"temp warning low humidity", 32, 5, Warning, 3, Reasons{TempWarning, LowHumidity}, PredictionWarning},
		{"low temperature", 4, 50, Critical, 3, Reasons{LowTemperature}, PredictionWarning},
		{"cool warning", 9.5, 50, Warning, 1, Reasons{TempWarning}, PredictionWarning},
		{"critical edge is exclusive", 35, 50, Warning, 1, Reasons{TempWarning}, PredictionWarning},
		{"low critical edge is exclusive", 5, 50, Warning, 1, Reasons{TempWarning}, PredictionWarning},
		{"humidity only", 20, 86, Warning, 2, Reasons{HighHumidity}, PredictionWarning},
		{"low temperature low humidity", 0, 0, Critical, 5, Reasons{LowTemperature, LowHumidity}, PredictionAnomaly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := eval.Evaluate(tt.temperature, tt.humidity)
			if v.Level != tt.level {
				t.Errorf("level: got %s, want %s", v.Level, tt.level)
			}
			if v.Score != tt.score {
				t.Errorf("score: got %d, want %d", v.Score, tt.score)
			}
			if !reflect.DeepEqual(v.Reasons, tt.reasons) {
				t.Errorf("reasons: got %v, want %v", v.Reasons, tt.reasons)
			}
			if v.Prediction != tt.prediction {
				t.Errorf("prediction: got %q, want %q", v.Prediction, tt.prediction)
			}
		})
	}
}

func TestSensorEvaluatorNormalBand(t *testing.T) {
	eval := NewSensorEvaluator(DefaultSensorThresholds())
	for temp := 10.0; temp <= 30; temp += 0.5 {
		for hum := 10.0; hum <= 85; hum += 2.5 {
			if v := eval.Evaluate(temp, hum); !v.IsNormal() || v.Score != 0 {
				t.Fatalf("T=%v H=%v: expected NORMAL, got %s score %d", temp, hum, v.Level, v.Score)
			}
		}
	}
}

func TestSensorEvaluatorCustomThresholds(t *testing.T) {
	th := DefaultSensorThresholds()
	th.CriticalHighTemp = 50
	eval := NewSensorEvaluator(th)

	v := eval.Evaluate(36, 50)
	if v.Level != Warning || v.Score != 1 {
		t.Fatalf("expected temp warning with raised critical threshold, got %s score %d", v.Level, v.Score)
	}
}

func TestUserEvaluator(t *testing.T) {
	eval := NewUserEvaluator(DefaultUserThresholds())

	v := eval.Evaluate(46)
	if v.Level != Warning || v.Score != 1 || v.Prediction != PredictionSuspicious {
		t.Fatalf("unexpected verdict for page 46: %+v", v)
	}
	if !reflect.DeepEqual(v.Reasons, Reasons{HighPageAccess}) {
		t.Fatalf("unexpected reasons %v", v.Reasons)
	}

	for _, page := range []int64{45, 0, -3} {
		if v := eval.Evaluate(page); !v.IsNormal() || v.Score != 0 || len(v.Reasons) != 0 {
			t.Fatalf("expected NORMAL for page %d, got %+v", page, v)
		}
	}
}

func TestLevelRaiseIsMonotonic(t *testing.T) {
	if got := Critical.Raise(Warning); got != Critical {
		t.Fatalf("expected CRITICAL to stay, got %s", got)
	}
	if got := Normal.Raise(Warning); got != Warning {
		t.Fatalf("expected raise to WARNING, got %s", got)
	}
	if Normal.String() != "NORMAL" || Warning.String() != "WARNING" || Critical.String() != "CRITICAL" {
		t.Fatal("unexpected level names")
	}
}

func TestReasons(t *testing.T) {
	var r Reasons
	if r.String() != "[]" {
		t.Fatalf("expected empty list, got %s", r.String())
	}

	r = r.With(HighTemperature).With(HighHumidity).With(HighTemperature)
	if len(r) != 2 {
		t.Fatalf("expected duplicates to be ignored, got %v", r)
	}
	if got := r.String(); got != `["HIGH_TEMPERATURE","HIGH_HUMIDITY"]` {
		t.Fatalf("unexpected rendering %s", got)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	eval := NewSensorEvaluator(DefaultSensorThresholds())
	first := eval.Evaluate(32, 5)
	for i := 0; i < 10; i++ {
		if got := eval.Evaluate(32, 5); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}
