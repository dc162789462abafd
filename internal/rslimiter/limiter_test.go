package rslimiter

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
)

func TestAllowCycle_UnderThreshold(t *testing.T) {
	g := NewMemoryGuard(85.0, zerolog.Nop())
	g.readMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 40.0}, nil
	}
	assert.True(t, g.AllowCycle())
}

func TestAllowCycle_OverThreshold(t *testing.T) {
	g := NewMemoryGuard(85.0, zerolog.Nop())
	g.readMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 92.5}, nil
	}
	assert.False(t, g.AllowCycle())
}

func TestAllowCycle_StatsUnavailable(t *testing.T) {
	g := NewMemoryGuard(85.0, zerolog.Nop())
	g.readMemory = func() (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("proc unavailable")
	}
	assert.True(t, g.AllowCycle())
}

func TestAllowCycle_Disabled(t *testing.T) {
	g := NewMemoryGuard(0, zerolog.Nop())
	g.readMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 99.0}, nil
	}
	assert.True(t, g.AllowCycle())
}
