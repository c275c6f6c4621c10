package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

const payload = `{"source":"sensor-data","alert_level":"CRITICAL"}`

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewArchive(db, DefaultBreakerConfig(), zerolog.Nop()).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS ml_predictions") {
		t.Fatalf("unexpected calls %+v", db.calls)
	}
}

func TestPublishInsertsPrediction(t *testing.T) {
	db := &fakeDB{}
	a := NewArchive(db, DefaultBreakerConfig(), zerolog.Nop())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	if err := a.Publish(context.Background(), "s-1", []byte(payload)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(db.calls))
	}
	args := db.calls[0].args
	if key := args[0].(pgtype.Text); !key.Valid || key.String != "s-1" {
		t.Fatalf("unexpected key arg %v", args[0])
	}
	if args[1] != "sensor-data" || args[2] != payload {
		t.Fatalf("unexpected args %v", args)
	}
	if ts := args[3].(pgtype.Timestamptz); !ts.Valid || !ts.Time.Equal(now) {
		t.Fatalf("unexpected archived_at %v", args[3])
	}

	if err := a.Publish(context.Background(), "", []byte(payload)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if key := db.calls[1].args[0].(pgtype.Text); key.Valid {
		t.Fatalf("expected NULL key, got %q", key.String)
	}
	if a.Name() != "postgres-archive" {
		t.Fatalf("unexpected name %s", a.Name())
	}
}

func TestPublishRejectsPayloadWithoutSource(t *testing.T) {
	db := &fakeDB{}
	a := NewArchive(db, DefaultBreakerConfig(), zerolog.Nop())
	if err := a.Publish(context.Background(), "k", []byte(`{"alert_level":"WARNING"}`)); err == nil {
		t.Fatal("expected error")
	}
	if len(db.calls) != 0 {
		t.Fatal("nothing should reach the database")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	a := NewArchive(db, BreakerConfig{FailureThreshold: 3, Timeout: time.Minute}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if err := a.Publish(context.Background(), "k", []byte(payload)); err == nil {
			t.Fatal("expected failure")
		}
	}
	if a.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", a.State())
	}

	err := a.Publish(context.Background(), "k", []byte(payload))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if len(db.calls) != 3 {
		t.Fatalf("open breaker must skip the database, got %d calls", len(db.calls))
	}
}
