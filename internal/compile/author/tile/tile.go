// Package tile derives the numeric constants that the kernel authors embed
// as literals: block extents, thread counts and the local memory window.
package tile

import (
	"dedisp/internal/compile/plan"
	"dedisp/internal/raw"
	"dedisp/internal/shifts"
)

type Consts struct {
	TotalSamplesPerBlock int
	TotalDMsPerBlock     int
	TotalThreads         int

	// Halo and BufferLen are zero unless the plan stages input in
	// OpenCL local memory.
	Halo      int
	BufferLen int
}

func Derive(pl *plan.Plan) Consts {
	t := &pl.Tiling
	c := Consts{
		TotalSamplesPerBlock: t.TotalSamplesPerBlock(),
		TotalDMsPerBlock:     t.TotalDMsPerBlock(),
		TotalThreads:         t.TotalThreads(),
	}
	if pl.Target == raw.OpenCL && t.LocalMemory {
		c.Halo = Halo(pl.Shifts, c.TotalDMsPerBlock)
		c.BufferLen = c.TotalSamplesPerBlock + c.Halo
	}
	return c
}

// Halo is the number of samples a block must stage beyond its own window
// so that, at every channel, each of its DMs finds its shifted input in
// the buffer. It is the widest spread between the first and last DM of any
// block of dmsPerBlock consecutive DMs, over all real channels. The
// caller guarantees 1 <= dmsPerBlock <= tab.NrDMs().
func Halo(tab *shifts.Table, dmsPerBlock int) int {
	dms := tab.NrDMs()
	if dmsPerBlock < 1 || dmsPerBlock > dms {
		panic("bug")
	}
	most := 0
	for first := 0; first < dms; first += dmsPerBlock {
		last := first + dmsPerBlock - 1
		if last >= dms {
			last = dms - 1
		}
		for ch := 0; ch < tab.NrChannels(); ch++ {
			if s := tab.Spread(first, last, ch); s > most {
				most = s
			}
		}
	}
	return most
}
