// Package deadletter keeps records the stream could not decode or encode in
// capped Redis lists, one per source, for later inspection or replay.
package deadletter

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	writeTimeout = 5 * time.Second
	retention    = 14 * 24 * time.Hour
)

type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type Entry struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Key        string    `json:"key,omitempty"`
	Payload    string    `json:"payload"`
	Error      string    `json:"error"`
	RejectedAt time.Time `json:"rejected_at"`
}

type Queue struct {
	rdb listClient
	cap int64
	now func() time.Time
}

// New returns a queue keeping at most capacity entries per source.
func New(rdb listClient, capacity int64) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{rdb: rdb, cap: capacity, now: time.Now}
}

func Key(source string) string {
	return "deadletter:" + source
}

// Reject stores the raw record with the error that caused it to be dropped.
// Newest entries sit at the head of the list.
func (q *Queue) Reject(ctx context.Context, source string, key, value []byte, cause error) error {
	entry := Entry{
		ID:         uuid.NewString(),
		Source:     source,
		Key:        string(key),
		Payload:    string(value),
		RejectedAt: q.now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	serialized, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not serialize dead letter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	listKey := Key(source)
	if err := q.rdb.LPush(ctx, listKey, serialized).Err(); err != nil {
		return fmt.Errorf("failed to push dead letter to redis: %w", err)
	}
	if err := q.rdb.LTrim(ctx, listKey, 0, q.cap-1).Err(); err != nil {
		return fmt.Errorf("failed to trim dead letter list: %w", err)
	}
	q.rdb.Expire(ctx, listKey, retention)
	return nil
}
