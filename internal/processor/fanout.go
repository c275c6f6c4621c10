package processor

import (
	"context"

	"github.com/rs/zerolog"
)

// Mirror is a best-effort secondary sink.
type Mirror interface {
	Publisher
	Name() string
}

// Fanout publishes to the primary sink and then to every mirror. Only the
// primary result is returned.
type Fanout struct {
	primary Publisher
	mirrors []Mirror
	obs     Observer
	log     zerolog.Logger
}

func NewFanout(primary Publisher, log zerolog.Logger, obs Observer, mirrors ...Mirror) *Fanout {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Fanout{primary: primary, mirrors: mirrors, obs: obs, log: log}
}

func (f *Fanout) Publish(ctx context.Context, key string, value []byte) error {
	if err := f.primary.Publish(ctx, key, value); err != nil {
		return err
	}

	for _, m := range f.mirrors {
		if err := m.Publish(ctx, key, value); err != nil {
			f.obs.MirrorFailed(m.Name())
			f.log.Warn().Err(err).Str("mirror", m.Name()).Str("key", key).Msg("mirror publish failed")
		}
	}
	return nil
}
