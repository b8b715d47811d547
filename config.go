// Package bandalign configuration constants and options
package bandalign

import (
	"github.com/LynnColeArt/bandalign/logging"
)

// Bandwidth defaults
const (
	// Starting bandwidth for requests added without an explicit one,
	// clamped to the aligner's maximum.
	DefaultInitialBandwidth = 128

	// Smallest maximum bandwidth accepted at construction
	MinMaxBandwidth = 1
)

// Kernel launch shape: one execution unit per pair.
const (
	pairsPerBlock = 1
)

type options struct {
	logger           logging.Logger
	maxSequenceLen   int
	maxAlignments    int
	initialBandwidth int
	growth           GrowthPolicy
}

// Option configures an aligner.
type Option func(*options)

// WithLogger sets the logger. The process-wide logger is used otherwise.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxSequenceLength rejects query or target sequences longer than n.
// Zero disables the check.
func WithMaxSequenceLength(n int) Option {
	return func(o *options) {
		o.maxSequenceLen = n
	}
}

// WithMaxAlignments limits the number of requests a batch holds between
// resets. Zero disables the check.
func WithMaxAlignments(n int) Option {
	return func(o *options) {
		o.maxAlignments = n
	}
}

// WithInitialBandwidth sets the bandwidth of requests added without one.
func WithInitialBandwidth(n int) Option {
	return func(o *options) {
		o.initialBandwidth = n
	}
}

// WithGrowthPolicy sets how the bandwidth of a band-too-narrow request grows
// before it is retried. DoublingGrowth is the default.
func WithGrowthPolicy(p GrowthPolicy) Option {
	return func(o *options) {
		o.growth = p
	}
}

func buildOptions(opts []Option) options {
	o := options{
		initialBandwidth: DefaultInitialBandwidth,
		growth:           DoublingGrowth{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.L()
	}
	if o.growth == nil {
		o.growth = DoublingGrowth{}
	}
	return o
}
