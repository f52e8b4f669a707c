// Runner type and lifecycle.
//
// A Runner binds a store, a codec and the write policy. Versioned types are
// attached to it through Files, Async and their archive counterparts. The
// blocking surfaces call the store directly from the caller's goroutine;
// the async surfaces run store I/O on a worker pool and wait for it or for
// their context, whichever comes first.
package varia

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/jpl-au/varia/codec"
	"github.com/jpl-au/varia/store"
)

const tracerName = "github.com/jpl-au/varia"

// Operation names used for spans, metrics and logs.
const (
	opLoad           = "load"
	opSave           = "save"
	opLoadAndMigrate = "load_and_migrate"
	opMigrate        = "migrate"
)

// Runner performs file operations for versioned types.
type Runner struct {
	store   store.Store
	codec   codec.Codec
	config  Config
	log     *zap.Logger
	tracer  trace.Tracer
	metrics *runnerMetrics
	pool    *ants.Pool

	direct port // caller's goroutine
	pooled port // worker pool

	closed atomic.Bool
	mu     sync.RWMutex // held shared by every operation, exclusively by Close
}

// Open creates the store named by cfg.Backend at cfg.Path and returns a
// runner over it.
func Open(cfg Config) (*Runner, error) {
	cfg = cfg.withDefaults()
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	r, err := New(s, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	return r, nil
}

// New returns a runner over s. The runner owns s and closes it on Close.
func New(s store.Store, cfg Config) (*Runner, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c, err := codec.Lookup(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if cfg.Compress {
		c = codec.Zstd(c)
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	m := newRunnerMetrics()
	if cfg.Registerer != nil {
		if err := m.register(cfg.Registerer); err != nil {
			return nil, fmt.Errorf("varia: register metrics: %w", err)
		}
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		store:   s,
		codec:   c,
		config:  cfg,
		log:     cfg.Logger.With(zap.String("codec", c.Name())),
		tracer:  tracer,
		metrics: m,
		pool:    pool,
		direct:  direct{s: s},
		pooled:  pooled{s: s, pool: pool},
	}
	r.log.Debug("runner opened",
		zap.String("backend", cfg.Backend),
		zap.Bool("verify_write", cfg.VerifyWrite),
		zap.Int("workers", cfg.Workers))
	return r, nil
}

func openStore(cfg Config) (store.Store, error) {
	if cfg.Path == "" && cfg.Backend != BackendMemory {
		return nil, fmt.Errorf("varia: %s backend requires a path", cfg.Backend)
	}
	switch cfg.Backend {
	case BackendFS:
		return store.OpenFS(cfg.Path, store.FSOptions{SyncWrites: cfg.SyncWrites})
	case BackendMemory:
		return store.NewMemory(), nil
	case BackendBolt:
		return store.OpenBolt(cfg.Path)
	case BackendSQLite:
		return store.OpenSQLite(cfg.Path)
	case BackendPebble:
		return store.OpenPebble(cfg.Path, cfg.SyncWrites)
	default:
		return nil, fmt.Errorf("varia: unknown backend %q", cfg.Backend)
	}
}

// Codec returns the codec records are written with.
func (r *Runner) Codec() codec.Codec { return r.codec }

// Store returns the underlying store.
func (r *Runner) Store() store.Store { return r.store }

// Close waits for running operations, stops the worker pool and closes the
// store. Later operations fail with ErrClosed.
func (r *Runner) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool.Release()
	r.log.Debug("runner closed")
	return r.store.Close()
}

// begin starts an operation: it holds off Close, opens a span and returns
// the function that records the outcome.
func (r *Runner) begin(ctx context.Context, op, path string) (context.Context, func(*error), error) {
	r.mu.RLock()
	if r.closed.Load() {
		r.mu.RUnlock()
		return ctx, nil, ErrClosed
	}
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "varia."+op, trace.WithAttributes(
		attribute.String("varia.path", path),
		attribute.String("varia.codec", r.codec.Name()),
	))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.metrics.observe(op, start, *errp)
		r.mu.RUnlock()
	}, nil
}

// get reads the record at path, mapping store errors onto the package's
// error kinds. Cancellation is returned unchanged.
func (r *Runner) get(ctx context.Context, p port, path string) ([]byte, error) {
	data, err := p.read(ctx, path)
	if err != nil {
		return nil, r.storeErr(ctx, path, err)
	}
	return data, nil
}

func (r *Runner) storeErr(ctx context.Context, path string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	case errors.Is(err, store.ErrClosed), errors.Is(err, ants.ErrPoolClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
}

// port performs store I/O either inline or on the worker pool.
type port interface {
	read(ctx context.Context, key string) ([]byte, error)
	write(ctx context.Context, key string, data []byte) error
}

type direct struct {
	s store.Store
}

func (d direct) read(ctx context.Context, key string) ([]byte, error) {
	return d.s.Read(ctx, key)
}

func (d direct) write(ctx context.Context, key string, data []byte) error {
	return d.s.Write(ctx, key, data)
}

// pooled submits each call to the pool and suspends until it completes or
// ctx is done. An abandoned call still runs to completion in the pool.
type pooled struct {
	s    store.Store
	pool *ants.Pool
}

type ioResult struct {
	data []byte
	err  error
}

func (p pooled) run(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan ioResult, 1)
	err := p.pool.Submit(func() {
		data, err := fn()
		ch <- ioResult{data: data, err: err}
	})
	if err != nil {
		return nil, err
	}
	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p pooled) read(ctx context.Context, key string) ([]byte, error) {
	return p.run(ctx, func() ([]byte, error) { return p.s.Read(ctx, key) })
}

func (p pooled) write(ctx context.Context, key string, data []byte) error {
	_, err := p.run(ctx, func() ([]byte, error) { return nil, p.s.Write(ctx, key, data) })
	return err
}
