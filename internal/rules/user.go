package rules

type UserThresholds struct {
	// MaxPageID is the highest page id treated as normal. 45 is a placeholder
	// carried over from the demo rule set.
	MaxPageID int64
	Delta     int
}

func DefaultUserThresholds() UserThresholds {
	return UserThresholds{MaxPageID: 45, Delta: 1}
}

type UserEvaluator struct {
	thresholds UserThresholds
}

func NewUserEvaluator(t UserThresholds) UserEvaluator {
	return UserEvaluator{thresholds: t}
}

func (e UserEvaluator) Evaluate(pageID int64) Verdict {
	if pageID <= e.thresholds.MaxPageID {
		return Verdict{Level: Normal}
	}
	return Verdict{
		Level:      Warning,
		Score:      e.thresholds.Delta,
		Reasons:    Reasons{HighPageAccess},
		Prediction: PredictionSuspicious,
	}
}
