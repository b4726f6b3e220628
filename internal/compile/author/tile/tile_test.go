package tile

import (
	"testing"

	"dedisp/internal/compile/plan"
	"dedisp/internal/obs"
	"dedisp/internal/raw"
	"dedisp/internal/shifts"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Four channels, four DMs; channel 0 carries the largest delay.
var hand = []uint32{
	0, 0, 0, 0,
	3, 2, 1, 0,
	6, 4, 2, 0,
	9, 6, 3, 0,
}

func handPlan(t *testing.T, target raw.Target, vals []uint32, tl plan.Tiling) *plan.Plan {
	o := must.M1(obs.New(obs.Params{Channels: 4, DMs: 4, SamplesPerSecond: 16, Padding: 4}))
	tab := must.M1(shifts.New(4, 4, 4, vals))
	o = must.M1(o.WithDispersedSamples(16 + tab.Max()))
	pl, err := plan.New("test", target, tl, o, tab)
	require.NoError(t, err)
	return pl
}

func TestHalo(t *testing.T) {
	tab := must.M1(shifts.New(4, 4, 4, hand))
	assert.Equal(t, 0, Halo(tab, 1))
	assert.Equal(t, 3, Halo(tab, 2))
	assert.Equal(t, 9, Halo(tab, 4))
	assert.Panics(t, func() { Halo(tab, 0) })
	assert.Panics(t, func() { Halo(tab, 5) })
}

func TestHaloLaterBlockWider(t *testing.T) {
	vals := []uint32{
		0, 0, 0, 0,
		1, 0, 0, 0,
		2, 0, 0, 0,
		7, 0, 0, 0,
	}
	tab := must.M1(shifts.New(4, 4, 4, vals))
	assert.Equal(t, 5, Halo(tab, 2), "second block spreads 2..7")
}

func TestDeriveLocal(t *testing.T) {
	tl := plan.Tiling{
		SamplesPerBlock: 4, DMsPerBlock: 2,
		SamplesPerThread: 2, DMsPerThread: 1,
		LocalMemory: true, ElemType: "float",
	}
	c := Derive(handPlan(t, raw.OpenCL, hand, tl))
	assert.Equal(t, 8, c.TotalSamplesPerBlock)
	assert.Equal(t, 2, c.TotalDMsPerBlock)
	assert.Equal(t, 8, c.TotalThreads)
	assert.Equal(t, 3, c.Halo)
	assert.Equal(t, 11, c.BufferLen)
	assert.GreaterOrEqual(t, c.BufferLen, c.TotalSamplesPerBlock)

	tl.LocalMemory = false
	c = Derive(handPlan(t, raw.OpenCL, hand, tl))
	assert.Zero(t, c.BufferLen)
}

func TestDeriveZeroSpread(t *testing.T) {
	tl := plan.Tiling{
		SamplesPerBlock: 8, DMsPerBlock: 1,
		SamplesPerThread: 1, DMsPerThread: 4,
		LocalMemory: true, ElemType: "float",
	}
	c := Derive(handPlan(t, raw.OpenCL, make([]uint32, 16), tl))
	assert.Equal(t, 0, c.Halo)
	assert.Equal(t, c.TotalSamplesPerBlock, c.BufferLen)
}
