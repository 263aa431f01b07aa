package propagate

import (
	"errors"

	"github.com/flblanc/asyncmd/propagate/emit"
	"github.com/flblanc/asyncmd/propagate/store"
	"github.com/flblanc/asyncmd/traj"
)

// SegmentLister finds the engine segments a previous propagation left in
// dir, in production order. It is injectable so tests and exotic engine
// layouts can bypass the on-disk naming scheme; the default is
// traj.ListSegments.
type SegmentLister func(dir, runName, ext string) ([]traj.Trajectory, error)

// Option is a functional option for configuring a Propagator.
//
// Options are chainable and optional: only specify the configuration you
// need.
//
// Example:
//
//	p, err := propagate.New(
//	    factory,
//	    conditions,
//	    20*time.Minute,
//	    propagate.WithMaxSteps(5_000_000),
//	    propagate.WithEmitter(emit.NewLogEmitter(os.Stderr, false)),
//	)
type Option func(*config) error

// config collects options before New applies and validates them.
type config struct {
	maxSteps  int
	maxFrames int

	emitter emit.Emitter
	metrics *PrometheusMetrics
	store   store.Store
	limiter *Limiter
	concat  traj.Concatenator
	lister  SegmentLister
}

// WithMaxSteps caps the engine's total integration step count for one
// propagation. A propagation whose step counter passes n without any
// condition becoming true terminates with *MaxStepsError.
//
// Default: 0, meaning unbounded: the loop runs until a condition is
// reached, so combine with a trustworthy condition set.
func WithMaxSteps(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return errors.New("max steps must be >= 0")
		}
		cfg.maxSteps = n
		return nil
	}
}

// WithMaxFrames caps the number of frames written to the output
// trajectory, converted to a step cap via the factory's OutputFrequency.
// When both WithMaxSteps and WithMaxFrames are given, max steps takes
// precedence and a warning event is emitted at construction.
func WithMaxFrames(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return errors.New("max frames must be >= 0")
		}
		cfg.maxFrames = n
		return nil
	}
}

// WithEmitter routes observability events to e. Default: null emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *config) error {
		if e == nil {
			return errors.New("emitter must not be nil")
		}
		cfg.emitter = e
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector. Default: none.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *config) error {
		cfg.metrics = m
		return nil
	}
}

// WithStore records run progress to s after every segment and at terminal
// states. The store never gates control flow: propagation works without
// one, and continuation re-evaluates all conditions on recovered segments
// regardless of what the store says. Default: none.
func WithStore(s store.Store) Option {
	return func(cfg *config) error {
		cfg.store = s
		return nil
	}
}

// WithLimiter shares a process-wide concatenation limiter. Pass the same
// limiter to every Propagator in the process to cap concurrent stitching
// globally. Default: a private single-slot limiter.
func WithLimiter(l *Limiter) Option {
	return func(cfg *config) error {
		if l == nil {
			return errors.New("limiter must not be nil")
		}
		cfg.limiter = l
		return nil
	}
}

// WithConcatenator selects the concatenation backend. Default: a
// traj.DCDConcatenator, matching the default engine segment format.
func WithConcatenator(c traj.Concatenator) Option {
	return func(cfg *config) error {
		if c == nil {
			return errors.New("concatenator must not be nil")
		}
		cfg.concat = c
		return nil
	}
}

// WithSegmentLister overrides how continuation discovers the segments of
// a previous run. Default: traj.ListSegments.
func WithSegmentLister(l SegmentLister) Option {
	return func(cfg *config) error {
		if l == nil {
			return errors.New("segment lister must not be nil")
		}
		cfg.lister = l
		return nil
	}
}
