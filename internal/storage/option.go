package storage

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	defaultCacheSize        = 256
	defaultCompactThreshold = 1 << 20
)

type options struct {
	codec            Codec
	cacheSize        int
	compactThreshold uint64
	logger           *zap.Logger
	clock            clock.Clock
	rootRights       FdStat
}

func defaultOptions() options {
	return options{
		codec:            Uncompressed,
		cacheSize:        defaultCacheSize,
		compactThreshold: defaultCompactThreshold,
		logger:           zap.NewNop(),
		clock:            clock.New(),
		rootRights: FdStat{
			RightsBase:       AllRights,
			RightsInheriting: AllRights,
		},
	}
}

// Option configures logs and file systems.
type Option func(*options)

// WithCompression sets the codec applied to large values written to the
// store. Values already written keep the codec they were written with.
func WithCompression(codec Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithCacheSize sets the number of decoded values kept in memory. Zero
// disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithCompactThreshold sets the number of garbage bytes a log must hold before
// it is compacted automatically.
func WithCompactThreshold(n uint64) Option {
	return func(o *options) { o.compactThreshold = n }
}

// WithLogger sets the logger used to report recovery and compaction.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock used to timestamp nodes.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRootRights sets the rights of the preopened root directory.
func WithRootRights(base, inheriting Rights) Option {
	return func(o *options) {
		o.rootRights.RightsBase = base
		o.rootRights.RightsInheriting = inheriting
	}
}
