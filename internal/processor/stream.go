package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	DefaultCommitInterval = 3 * time.Second
	commitTimeout         = 10 * time.Second
)

// Poller is the input boundary. *kgo.Client satisfies it.
type Poller interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

type Option func(*Stream)

func WithWorkers(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithCommitInterval(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.commitInterval = d
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(s *Stream) {
		if obs != nil {
			s.obs = obs
		}
	}
}

func WithDeadLetter(dlq DeadLetter) Option {
	return func(s *Stream) {
		if dlq != nil {
			s.dlq = dlq
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Stream) { s.log = log }
}

// OnFatal registers a hook invoked once the stream stops on a transport error.
func OnFatal(fn func(error)) Option {
	return func(s *Stream) { s.onFatal = fn }
}

// Stream polls both input topics, runs each record through the topology and
// publishes emitted predictions. Records are committed only after they have
// been handled, so a restart redelivers anything in flight.
type Stream struct {
	poller         Poller
	topology       *Topology
	publisher      Publisher
	obs            Observer
	dlq            DeadLetter
	log            zerolog.Logger
	workers        int
	commitInterval time.Duration
	onFatal        func(error)

	mu    sync.Mutex
	fatal error
}

func NewStream(poller Poller, topology *Topology, publisher Publisher, opts ...Option) *Stream {
	s := &Stream{
		poller:         poller,
		topology:       topology,
		publisher:      publisher,
		obs:            nopObserver{},
		dlq:            nopDeadLetter{},
		log:            zerolog.Nop(),
		workers:        1,
		commitInterval: DefaultCommitInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) String() string { return "stream" }

// Err returns the transport error that stopped the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

type partitionJob struct {
	records []*kgo.Record
	result  chan<- batchResult
}

type batchResult struct {
	done []*kgo.Record
	err  error
}

// Serve implements suture.Service.
func (s *Stream) Serve(ctx context.Context) error {
	if s.Err() != nil {
		return suture.ErrDoNotRestart
	}

	// Records already picked up must finish even after shutdown starts.
	work := context.WithoutCancel(ctx)

	commits := make(chan []*kgo.Record, s.workers)
	committed := make(chan struct{})
	go func() {
		defer close(committed)
		s.commitLoop(work, commits)
	}()

	jobs := make(chan partitionJob)
	var workers sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for job := range jobs {
				job.result <- s.processPartition(work, job.records)
			}
		}()
	}

	err := s.pollLoop(ctx, jobs, commits)

	close(jobs)
	workers.Wait()
	close(commits)
	<-committed

	if err != nil {
		s.fail(err)
		return suture.ErrDoNotRestart
	}
	s.log.Info().Msg("stream stopped")
	return ctx.Err()
}

func (s *Stream) pollLoop(ctx context.Context, jobs chan<- partitionJob, commits chan<- []*kgo.Record) error {
	s.log.Info().
		Strs("topics", s.topology.Topics()).
		Str("output", s.topology.Output()).
		Int("workers", s.workers).
		Msg("stream started")

	for {
		fetches := s.poller.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if fetches.IsClientClosed() {
			return &TransportError{Op: "poll fetches", Err: kgo.ErrClientClosed}
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			s.log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("fetch error")
		})

		var batches [][]*kgo.Record
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			if len(p.Records) > 0 {
				batches = append(batches, p.Records)
			}
		})
		if len(batches) == 0 {
			continue
		}

		results := make(chan batchResult, len(batches))
		for _, records := range batches {
			jobs <- partitionJob{records: records, result: results}
		}

		var failed error
		for range batches {
			r := <-results
			if len(r.done) > 0 {
				commits <- r.done
			}
			if r.err != nil && failed == nil {
				failed = r.err
			}
		}
		if failed != nil {
			return failed
		}
	}
}

// processPartition handles one partition's records in order. It stops at the
// first transport error and reports the records handled before it.
func (s *Stream) processPartition(ctx context.Context, records []*kgo.Record) batchResult {
	for i, record := range records {
		if err := s.processRecord(ctx, record); err != nil {
			return batchResult{done: records[:i], err: err}
		}
	}
	return batchResult{done: records}
}

func (s *Stream) processRecord(ctx context.Context, record *kgo.Record) error {
	start := time.Now()
	source := s.topology.Source(record.Topic)
	s.obs.Consumed(source)
	defer func() { s.obs.Processed(source, time.Since(start)) }()

	outcome, err := s.topology.Handle(record.Topic, record.Key, record.Value)
	if err != nil {
		s.drop(ctx, source, record, err)
		return nil
	}
	if !outcome.Emit {
		return nil
	}

	if err := s.publisher.Publish(ctx, outcome.Output.Key, outcome.Output.Value); err != nil {
		return &TransportError{Op: "publish prediction", Err: err}
	}
	s.obs.Emitted(source, outcome.Verdict.Level.String())
	return nil
}

func (s *Stream) drop(ctx context.Context, source string, record *kgo.Record, err error) {
	var (
		decodeErr *DecodeError
		encodeErr *EncodeError
		reason    = "handler"
	)
	switch {
	case errors.As(err, &decodeErr):
		reason = DropDecode
	case errors.As(err, &encodeErr):
		reason = DropEncode
	case errors.Is(err, ErrUnknownSource):
		reason = DropUnknownSource
	}

	s.obs.Dropped(source, reason)
	s.log.Error().
		Err(err).
		Str("source", source).
		Str("reason", reason).
		Int32("partition", record.Partition).
		Int64("offset", record.Offset).
		Msg("record dropped")

	if reason != DropDecode && reason != DropEncode {
		return
	}
	if dlqErr := s.dlq.Reject(ctx, source, record.Key, record.Value, err); dlqErr != nil {
		s.log.Warn().Err(dlqErr).Str("source", source).Msg("dead letter write failed")
	}
}

func (s *Stream) commitLoop(ctx context.Context, commits <-chan []*kgo.Record) {
	var pending []*kgo.Record
	ticker := time.NewTicker(s.commitInterval)
	defer ticker.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		cctx, cancel := context.WithTimeout(ctx, commitTimeout)
		defer cancel()
		if err := s.poller.CommitRecords(cctx, pending...); err != nil {
			s.log.Error().Err(err).Int("records", len(pending)).Msg("commit failed")
		} else {
			s.log.Debug().Int("records", len(pending)).Msg("committed records")
		}
		pending = nil
	}

	for {
		select {
		case batch, ok := <-commits:
			if !ok {
				flush()
				return
			}
			pending = append(pending, batch...)
		case <-ticker.C:
			flush()
		}
	}
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.fatal = err
	s.mu.Unlock()

	s.log.Error().Err(err).Msg("stream stopped on transport failure")
	if s.onFatal != nil {
		s.onFatal(err)
	}
}
