package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
)

// ReadThrough pairs a Cacher with a singleflight group so concurrent misses
// for one key trigger a single fetch.
type ReadThrough struct {
	cacher Cacher
	sf     singleflight.Group
	logger *zap.Logger
	jitter time.Duration
}

type ReadThroughOption func(*ReadThrough)

// WithJitter spreads TTLs by up to ±d to avoid mass expiry. Zero disables it.
func WithJitter(d time.Duration) ReadThroughOption {
	return func(r *ReadThrough) { r.jitter = d }
}

func NewReadThrough(c Cacher, logger *zap.Logger, opts ...ReadThroughOption) *ReadThrough {
	if c == nil {
		c = Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ReadThrough{cacher: c, logger: logger.Named("cache"), jitter: 15 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ReadThrough) ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 || r.jitter <= 0 || ttl <= 2*r.jitter {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(int64(2*r.jitter))) - r.jitter
}

func (r *ReadThrough) set(key string, value any, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl = r.ttlWithJitter(ttl)
	if err := r.cacher.Set(ctx, key, value, ttl); err != nil {
		r.logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
		return
	}
	r.logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttl))
}

func refreshInBackground[T any](r *ReadThrough, key string, ttl time.Duration, fn FetchFunc[T]) {
	go func() {
		_, _, _ = r.sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				r.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			r.set(key, value, ttl)
			return value, nil
		})
	}()
}

// FindAndCache serves key from the cache, falling back to fn on a miss or a
// cache error. With refreshAhead, every hit also refreshes the entry in the
// background so that the next read sees fresher data.
func FindAndCache[T any](ctx context.Context, r *ReadThrough, key string, ttl time.Duration, refreshAhead bool, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached T
	err := r.cacher.Get(ctx, key, &cached)
	switch {
	case err == nil:
		r.logger.Debug("cache hit", zap.String("key", key))
		if refreshAhead {
			refreshInBackground(r, key, ttl, fn)
		}
		return cached, nil

	case errors.Is(err, ErrMiss):
		r.logger.Debug("cache miss", zap.String("key", key))

	default:
		r.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := r.sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		go r.set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		r.logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}
