// Package generator produces synthetic sensor readings and user events for
// exercising the detector end to end.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/GitWithJosh/cloud-computing-vl/contracts/events"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
)

var actions = []string{"view", "click", "scroll", "search", "add_to_cart", "purchase"}

type Generator struct {
	faker       *gofakeit.Faker
	anomalyRate float64
	sensors     int
	users       int
	now         func() time.Time
}

func New(faker *gofakeit.Faker, anomalyRate float64, sensors, users int) *Generator {
	if sensors < 1 {
		sensors = 1
	}
	if users < 1 {
		users = 1
	}
	return &Generator{
		faker:       faker,
		anomalyRate: anomalyRate,
		sensors:     sensors,
		users:       users,
		now:         time.Now,
	}
}

// SensorReading returns a reading inside the normal band, or one that breaks
// exactly one threshold when anomalous is set.
func (g *Generator) SensorReading(anomalous bool) events.SensorReading {
	r := events.SensorReading{
		SensorID:    fmt.Sprintf("sensor-%03d", g.faker.IntRange(1, g.sensors)),
		Temperature: round(g.faker.Float64Range(12, 28)),
		Humidity:    round(g.faker.Float64Range(20, 80)),
		Timestamp:   g.now().UTC().Format(time.RFC3339Nano),
	}
	if !anomalous {
		return r
	}

	switch g.faker.IntRange(0, 3) {
	case 0:
		r.Temperature = round(g.faker.Float64Range(35.5, 60))
	case 1:
		r.Temperature = round(g.faker.Float64Range(-20, 4.5))
	case 2:
		r.Humidity = round(g.faker.Float64Range(85.5, 100))
	default:
		r.Humidity = round(g.faker.Float64Range(0, 9.5))
	}
	return r
}

func (g *Generator) UserEvent(anomalous bool) events.UserEvent {
	e := events.UserEvent{
		UserID: int64(g.faker.IntRange(1, g.users)),
		Action: g.faker.RandomString(actions),
		PageID: int64(g.faker.IntRange(1, 45)),
	}
	if anomalous {
		e.PageID = int64(g.faker.IntRange(46, 500))
	}
	return e
}

// Message is one generated record, ready to publish.
type Message struct {
	Source string
	Key    string
	Value  []byte
}

func (g *Generator) Next() (Message, error) {
	anomalous := g.faker.Float64() < g.anomalyRate

	if g.faker.Bool() {
		r := g.SensorReading(anomalous)
		value, err := json.Marshal(r)
		if err != nil {
			return Message{}, fmt.Errorf("could not marshal sensor reading: %w", err)
		}
		return Message{Source: events.SourceSensorData, Key: r.SensorID, Value: value}, nil
	}

	e := g.UserEvent(anomalous)
	value, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("could not marshal user event: %w", err)
	}
	return Message{Source: events.SourceUserEvents, Key: fmt.Sprint(e.UserID), Value: value}, nil
}

// Run publishes count messages (or until ctx is done when count is 0), one
// every interval. Sinks are keyed by source.
func (g *Generator) Run(ctx context.Context, sinks map[string]processor.Publisher, interval time.Duration, count int, log zerolog.Logger) (int, error) {
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	sent := 0
	for count == 0 || sent < count {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return sent, nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return sent, nil
		}

		msg, err := g.Next()
		if err != nil {
			return sent, err
		}
		sink, ok := sinks[msg.Source]
		if !ok {
			return sent, fmt.Errorf("%w: %s", processor.ErrUnknownSource, msg.Source)
		}
		if err := sink.Publish(ctx, msg.Key, msg.Value); err != nil {
			return sent, fmt.Errorf("send %s event: %w", msg.Source, err)
		}
		sent++
		log.Debug().Str("source", msg.Source).Str("key", msg.Key).Msg("event sent")
	}
	return sent, nil
}

func round(v float64) float64 {
	return float64(int64(v*10)) / 10
}
