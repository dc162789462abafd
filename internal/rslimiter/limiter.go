package rslimiter

import (
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryGuard checks system memory pressure before expensive work. The
// browser fetch mode can spike memory on pages with large slot tables, so
// the monitor consults the guard at the top of each cycle and skips the
// cycle under pressure rather than risking the OOM killer.
type MemoryGuard struct {
	maxPercent float64
	logger     zerolog.Logger
	readMemory func() (*mem.VirtualMemoryStat, error)
}

// NewMemoryGuard creates a guard that trips above maxPercent system memory
// usage. A non-positive maxPercent disables the guard.
func NewMemoryGuard(maxPercent float64, logger zerolog.Logger) *MemoryGuard {
	return &MemoryGuard{
		maxPercent: maxPercent,
		logger:     logger.With().Str("component", "MemoryGuard").Logger(),
		readMemory: mem.VirtualMemory,
	}
}

// AllowCycle reports whether a check cycle may proceed. Failures reading
// system stats allow the cycle: the guard protects against pressure, not
// against missing instrumentation.
func (g *MemoryGuard) AllowCycle() bool {
	if g.maxPercent <= 0 {
		return true
	}

	vm, err := g.readMemory()
	if err != nil {
		g.logger.Warn().Err(err).Msg("System memory stats unavailable, allowing cycle")
		return true
	}

	if vm.UsedPercent > g.maxPercent {
		g.logger.Warn().
			Float64("used_percent", vm.UsedPercent).
			Float64("max_percent", g.maxPercent).
			Msg("Memory pressure high, skipping cycle")
		return false
	}
	return true
}

// Usage returns a point-in-time snapshot for session diagnostics.
func (g *MemoryGuard) Usage() (systemUsedPercent float64, heapAllocMB uint64) {
	if vm, err := g.readMemory(); err == nil {
		systemUsedPercent = vm.UsedPercent
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	heapAllocMB = stats.Alloc / 1024 / 1024
	return systemUsedPercent, heapAllocMB
}
