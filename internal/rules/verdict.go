package rules

import "strings"

// Level is an ordinal alert severity.
type Level int

const (
	Normal Level = iota
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// Raise returns the higher of the two levels. Levels never go down.
func (l Level) Raise(to Level) Level {
	if to > l {
		return to
	}
	return l
}

type Reason string

const (
	HighTemperature Reason = "HIGH_TEMPERATURE"
	LowTemperature  Reason = "LOW_TEMPERATURE"
	TempWarning     Reason = "TEMP_WARNING"
	HighHumidity    Reason = "HIGH_HUMIDITY"
	LowHumidity     Reason = "LOW_HUMIDITY"
	HighPageAccess  Reason = "HIGH_PAGE_ACCESS"
)

// Reasons keeps insertion order and holds each code at most once.
type Reasons []Reason

func (r Reasons) With(reason Reason) Reasons {
	for _, existing := range r {
		if existing == reason {
			return r
		}
	}
	return append(r, reason)
}

// String renders the bracketed list consumers parse, e.g. ["A","B"].
func (r Reasons) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, reason := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(string(reason))
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return b.String()
}

const (
	PredictionAnomaly    = "ANOMALY_DETECTED"
	PredictionWarning    = "WARNING_DETECTED"
	PredictionSuspicious = "SUSPICIOUS_BEHAVIOR"
)

type Verdict struct {
	Level      Level
	Score      int
	Reasons    Reasons
	Prediction string
}

func (v Verdict) IsNormal() bool {
	return v.Level == Normal
}

// rule is one row of an evaluation table.
type rule struct {
	match  func(v float64) bool
	delta  int
	level  Level
	reason Reason
}

// applyFirst applies the first matching rule of the group, if any.
func (v *Verdict) applyFirst(group []rule, value float64) {
	for _, r := range group {
		if !r.match(value) {
			continue
		}
		v.Score += r.delta
		v.Level = v.Level.Raise(r.level)
		v.Reasons = v.Reasons.With(r.reason)
		return
	}
}
