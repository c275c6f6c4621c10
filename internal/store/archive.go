// Package store archives emitted predictions in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	MirrorName = "postgres-archive"

	schema = `CREATE TABLE IF NOT EXISTS ml_predictions (
	id          BIGSERIAL PRIMARY KEY,
	record_key  TEXT,
	source      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	insertPrediction = `INSERT INTO ml_predictions (record_key, source, payload, archived_at)
VALUES ($1, $2, $3::jsonb, $4)`
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Timeout: 30 * time.Second}
}

// Archive is a best-effort mirror of the output topic.
type Archive struct {
	db  execer
	cb  *gobreaker.CircuitBreaker[pgconn.CommandTag]
	now func() time.Time
}

func NewArchive(db execer, cfg BreakerConfig, log zerolog.Logger) *Archive {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultBreakerConfig().Timeout
	}

	cb := gobreaker.NewCircuitBreaker[pgconn.CommandTag](gobreaker.Settings{
		Name:        MirrorName,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("archive breaker state change")
		},
	})

	return &Archive{db: db, cb: cb, now: time.Now}
}

func (a *Archive) Name() string { return MirrorName }

func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ml_predictions table: %w", err)
	}
	return nil
}

// Publish stores one serialized prediction. The source column is read from
// the payload itself.
func (a *Archive) Publish(ctx context.Context, key string, value []byte) error {
	var head struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return fmt.Errorf("archive payload: %w", err)
	}
	if head.Source == "" {
		return errors.New("archive payload: missing source")
	}

	recordKey := pgtype.Text{String: key, Valid: key != ""}
	archivedAt := pgtype.Timestamptz{Time: a.now().UTC(), Valid: true}

	_, err := a.cb.Execute(func() (pgconn.CommandTag, error) {
		return a.db.Exec(ctx, insertPrediction, recordKey, head.Source, string(value), archivedAt)
	})
	if err != nil {
		return fmt.Errorf("archive prediction: %w", err)
	}
	return nil
}

func (a *Archive) State() gobreaker.State {
	return a.cb.State()
}
