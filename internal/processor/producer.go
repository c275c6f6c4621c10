package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const DefaultPublishTimeout = 10 * time.Second

// Publisher is the output boundary. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Producer struct {
	client  syncProducer
	topic   string
	timeout time.Duration
}

func NewProducer(client syncProducer, topic string, timeout time.Duration) *Producer {
	return &Producer{client: client, topic: topic, timeout: timeout}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	record := &kgo.Record{
		Topic:     p.topic,
		Value:     value,
		Timestamp: time.Now(),
	}
	if key != "" {
		record.Key = []byte(key)
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}
