package processor

import (
	"context"
	"time"
)

// Observer receives per-record processing signals, typically for metrics.
type Observer interface {
	Consumed(source string)
	Dropped(source, reason string)
	Emitted(source, level string)
	Processed(source string, d time.Duration)
	MirrorFailed(mirror string)
}

// DeadLetter keeps records that were dropped because they could not be
// decoded or encoded.
type DeadLetter interface {
	Reject(ctx context.Context, source string, key, value []byte, cause error) error
}

type nopObserver struct{}

func (nopObserver) Consumed(string)                 {}
func (nopObserver) Dropped(string, string)          {}
func (nopObserver) Emitted(string, string)          {}
func (nopObserver) Processed(string, time.Duration) {}
func (nopObserver) MirrorFailed(string)             {}

type nopDeadLetter struct{}

func (nopDeadLetter) Reject(context.Context, string, []byte, []byte, error) error { return nil }

const (
	DropDecode        = "decode"
	DropEncode        = "encode"
	DropUnknownSource = "unknown_source"
)
