package processor

import (
	"fmt"
	"sort"

	"github.com/GitWithJosh/cloud-computing-vl/internal/rules"
)

// Outcome is the result of running one record through a source pipeline.
type Outcome struct {
	Verdict rules.Verdict
	Output  Output
	Emit    bool
}

// Handler is one source pipeline: decode, evaluate, encode.
type Handler interface {
	Source() string
	Handle(key, value []byte) (Outcome, error)
}

// Topology binds input topics to handlers that all write to one output
// topic. It is built once at startup and only read afterwards.
type Topology struct {
	output   string
	handlers map[string]Handler
}

func NewTopology(output string) *Topology {
	return &Topology{output: output, handlers: make(map[string]Handler)}
}

func (t *Topology) Bind(topic string, handler Handler) *Topology {
	if handler == nil {
		return t
	}
	t.handlers[topic] = handler
	return t
}

func (t *Topology) Output() string {
	return t.output
}

func (t *Topology) Topics() []string {
	topics := make([]string, 0, len(t.handlers))
	for topic := range t.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Source returns the source tag bound to topic, or the topic itself.
func (t *Topology) Source(topic string) string {
	if h, ok := t.handlers[topic]; ok {
		return h.Source()
	}
	return topic
}

func (t *Topology) Handle(topic string, key, value []byte) (Outcome, error) {
	handler, ok := t.handlers[topic]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownSource, topic)
	}
	return handler.Handle(key, value)
}
