package memgov

import (
	"log/slog"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Tier is a discrete memory-usage bucket that governs chunk size and
// concurrency.
type Tier int

const (
	// TierNormal applies below 75% system memory usage.
	TierNormal Tier = iota
	// TierMedium applies between 75% and 90% usage, and whenever the
	// memory reading is unavailable.
	TierMedium
	// TierHigh applies above 90% usage.
	TierHigh
)

// String returns the tier name for logging.
func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	}
	return "unknown"
}

// Limits are the processing bounds for a pressure tier.
type Limits struct {
	MaxChunkWords       int
	MaxConcurrentChunks int
}

// Stats is a point-in-time memory reading.
type Stats struct {
	UsedPercent float64
	ProcessMB   float64
}

const (
	mediumThresholdPercent = 75.0
	highThresholdPercent   = 90.0
)

// Governor derives processing limits from live memory readings. It
// holds no persistent state and is safe for concurrent use.
type Governor struct {
	readUsedPercent func() (float64, error)
	proc            *process.Process
	logger          *slog.Logger

	normal Limits
	medium Limits
	high   Limits

	hintCount atomic.Uint64
	hintBusy  atomic.Bool
	lastHigh  atomic.Bool
}

// Option configures a Governor.
type Option func(*Governor)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMemoryReader replaces the system memory reading, returning the
// used percentage. Intended for tests.
func WithMemoryReader(read func() (float64, error)) Option {
	return func(g *Governor) {
		if read != nil {
			g.readUsedPercent = read
		}
	}
}

// WithNormalLimits overrides the normal-tier limits; the medium and
// high tiers are derived by the same ratios as the defaults (3/4 and
// 1/2 of the chunk window, concurrency stepped down to 1 under high
// pressure).
func WithNormalLimits(normal Limits) Option {
	return func(g *Governor) {
		if normal.MaxChunkWords < 1 || normal.MaxConcurrentChunks < 1 {
			return
		}
		g.normal = normal
		g.medium = Limits{
			MaxChunkWords:       max(1, normal.MaxChunkWords*3/4),
			MaxConcurrentChunks: max(1, normal.MaxConcurrentChunks*2/3),
		}
		g.high = Limits{
			MaxChunkWords:       max(1, normal.MaxChunkWords/2),
			MaxConcurrentChunks: 1,
		}
	}
}

// New creates a Governor reading live system memory.
func New(opts ...Option) *Governor {
	g := &Governor{
		readUsedPercent: systemUsedPercent,
		logger:          slog.Default().With("component", "memgov"),
		normal:          Limits{MaxChunkWords: 2000, MaxConcurrentChunks: 3},
		medium:          Limits{MaxChunkWords: 1500, MaxConcurrentChunks: 2},
		high:            Limits{MaxChunkWords: 1000, MaxConcurrentChunks: 1},
	}
	// Process handle failures are tolerated; Stats falls back to zero.
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		g.proc = p
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func systemUsedPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// CurrentTier recomputes the pressure tier from a fresh memory
// reading. An unavailable reading fails open to TierMedium. Crossing
// into TierHigh triggers an advisory garbage-collection hint that
// never blocks the caller.
func (g *Governor) CurrentTier() Tier {
	used, err := g.readUsedPercent()
	if err != nil {
		g.logger.Warn("memory reading unavailable, assuming medium pressure", "err", err)
		g.lastHigh.Store(false)
		return TierMedium
	}

	var tier Tier
	switch {
	case used > highThresholdPercent:
		tier = TierHigh
	case used >= mediumThresholdPercent:
		tier = TierMedium
	default:
		tier = TierNormal
	}

	if tier == TierHigh {
		if !g.lastHigh.Swap(true) {
			g.hintCount.Add(1)
			g.logger.Warn("high memory pressure, requesting cleanup", "used_percent", used)
			g.requestCleanup()
		}
	} else {
		g.lastHigh.Store(false)
	}

	return tier
}

// LimitsFor maps a tier to its processing limits.
func (g *Governor) LimitsFor(tier Tier) Limits {
	switch tier {
	case TierHigh:
		return g.high
	case TierMedium:
		return g.medium
	default:
		return g.normal
	}
}

// CurrentLimits is shorthand for LimitsFor(CurrentTier()).
func (g *Governor) CurrentLimits() Limits {
	return g.LimitsFor(g.CurrentTier())
}

// Stats returns a point-in-time reading of system usage and process
// resident memory. Either field may be zero when the reading fails.
func (g *Governor) Stats() Stats {
	var s Stats
	if used, err := g.readUsedPercent(); err == nil {
		s.UsedPercent = used
	}
	if g.proc != nil {
		if info, err := g.proc.MemoryInfo(); err == nil {
			s.ProcessMB = float64(info.RSS) / 1024 / 1024
		}
	}
	return s
}

// CleanupHints reports how many times the governor crossed into the
// high tier and requested a cleanup.
func (g *Governor) CleanupHints() uint64 {
	return g.hintCount.Load()
}

// requestCleanup asks the runtime to return memory to the OS. It runs
// in a guarded goroutine so a slow collection cannot stall chunk
// processing.
func (g *Governor) requestCleanup() {
	if g.hintBusy.Swap(true) {
		return
	}
	go func() {
		defer g.hintBusy.Store(false)
		debug.FreeOSMemory()
		g.logger.Debug("memory cleanup hint completed")
	}()
}
