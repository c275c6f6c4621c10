package useractivity

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/GitWithJosh/cloud-computing-vl/contracts/events"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
	"github.com/GitWithJosh/cloud-computing-vl/internal/rules"
)

const Model = "user-behavior-detector-v1.0"

type Handler struct {
	evaluator rules.UserEvaluator
	encoder   processor.Encoder
	log       zerolog.Logger
}

func NewHandler(encoder processor.Encoder, log zerolog.Logger) Handler {
	return Handler{
		evaluator: rules.NewUserEvaluator(rules.DefaultUserThresholds()),
		encoder:   encoder,
		log:       log.With().Str("source", events.SourceUserEvents).Logger(),
	}
}

func (h Handler) Source() string {
	return events.SourceUserEvents
}

func (h Handler) Handle(_, value []byte) (processor.Outcome, error) {
	ev, err := events.DecodeUserEvent(value)
	if err != nil {
		return processor.Outcome{}, &processor.DecodeError{Source: h.Source(), Err: err}
	}

	verdict := h.evaluator.Evaluate(ev.PageID)
	h.log.Info().
		Int64("user_id", ev.UserID).
		Str("alert_level", verdict.Level.String()).
		Msg(Status(ev, verdict))

	key := strconv.FormatInt(ev.UserID, 10)
	out, ok, err := h.encoder.Encode(key, verdict, events.UserPrediction(ev, Model))
	if err != nil {
		return processor.Outcome{Verdict: verdict}, err
	}
	return processor.Outcome{Verdict: verdict, Output: out, Emit: ok}, nil
}

func Status(e events.UserEvent, v rules.Verdict) string {
	if v.IsNormal() {
		return fmt.Sprintf("USER NORMAL: User %d performed %s on page %d - NORMAL_BEHAVIOR", e.UserID, e.Action, e.PageID)
	}
	return fmt.Sprintf("USER ANOMALY: User %d accessing high page ID %d - %s", e.UserID, e.PageID, v.Prediction)
}
