// Package reference executes dedispersion in Go. Dedisperse is the ground
// truth; Tiled and Vector walk the same work decomposition, index math and
// buffer discipline as the generated OpenCL and SIMD kernels, so a plan can
// be checked without a device.
//
// Every routine sums channels in ascending order, which makes float32
// results of a correct plan bit for bit equal to Dedisperse.
package reference

import (
	"dedisp/internal/compile/author/avx"
	"dedisp/internal/compile/author/tile"
	"dedisp/internal/compile/author/unroll"
	"dedisp/internal/compile/plan"
	"dedisp/internal/obs"
	"dedisp/internal/raw"
	"dedisp/internal/shifts"

	"github.com/pkg/errors"
)

func checkInput(o *obs.Observation, input []float32) error {
	if want := o.NrChannels() * o.NrSamplesPerDispersedChannel(); len(input) < want {
		return errors.Errorf("input has %d samples, need %d channels x %d",
			len(input), o.NrChannels(), o.NrSamplesPerDispersedChannel())
	}
	return nil
}

func newOutput(o *obs.Observation) []float32 {
	return make([]float32, o.NrDMs()*o.NrSamplesPerPaddedSecond())
}

// Dedisperse is output[dm][sample] = sum over channels of
// input[channel][sample + shift[dm][channel]].
func Dedisperse(o *obs.Observation, tab *shifts.Table, input []float32) ([]float32, error) {
	if err := checkInput(o, input); err != nil {
		return nil, err
	}
	var (
		l   = o.NrSamplesPerDispersedChannel()
		np  = o.NrSamplesPerPaddedSecond()
		out = newOutput(o)
	)
	for dm := 0; dm < o.NrDMs(); dm++ {
		for sample := 0; sample < o.NrSamplesPerSecond(); sample++ {
			var acc float32
			for ch := 0; ch < o.NrChannels(); ch++ {
				at := sample + tab.At(dm, ch)
				if at >= l {
					return nil, errors.Errorf("DM %d channel %d: sample %d past %d", dm, ch, at, l)
				}
				acc += input[ch*l+at]
			}
			out[dm*np+sample] = acc
		}
	}
	return out, nil
}

// Tiled runs the OpenCL kernel of an OpenCL plan one work-group at a time.
// Work-items of a group run each phase to completion before the next phase
// starts, which is what the kernel's barriers guarantee. A read of a local
// buffer slot that lies outside the buffer, or that no work-item staged for
// the current channel, is an error.
func Tiled(pl *plan.Plan, input []float32) ([]float32, error) {
	if pl.Target != raw.OpenCL {
		return nil, errors.Errorf("tiled emulation of a %s plan", pl.Target)
	}
	o := pl.Obs
	if err := checkInput(o, input); err != nil {
		return nil, err
	}
	g := &group{
		pl:    pl,
		c:     tile.Derive(pl),
		input: input,
		out:   newOutput(o),
	}
	t := &pl.Tiling
	g.cells = unroll.Cells(t.SamplesPerThread, t.DMsPerThread, t.SamplesPerBlock)
	g.acc = make([]float32, t.TotalThreads()*len(g.cells))
	if t.LocalMemory {
		g.buffer = make([]float32, g.c.BufferLen)
		g.staged = make([]bool, g.c.BufferLen)
	}
	for gy := 0; gy < o.NrDMs()/g.c.TotalDMsPerBlock; gy++ {
		for gx := 0; gx < o.NrSamplesPerSecond()/g.c.TotalSamplesPerBlock; gx++ {
			if err := g.run(gx, gy); err != nil {
				return nil, errors.Wrapf(err, "work-group (%d, %d)", gx, gy)
			}
		}
	}
	return g.out, nil
}

type group struct {
	pl     *plan.Plan
	c      tile.Consts
	cells  []unroll.Cell
	input  []float32
	out    []float32
	acc    []float32
	buffer []float32
	staged []bool
}

type item struct {
	lx, ly int
	dm     int
	sample int
}

func (g *group) items(gx, gy int) []item {
	t := &g.pl.Tiling
	items := make([]item, 0, g.c.TotalThreads)
	for ly := 0; ly < t.DMsPerBlock; ly++ {
		for lx := 0; lx < t.SamplesPerBlock; lx++ {
			items = append(items, item{
				lx:     lx,
				ly:     ly,
				dm:     gy*g.c.TotalDMsPerBlock + ly*t.DMsPerThread,
				sample: gx*g.c.TotalSamplesPerBlock + lx,
			})
		}
	}
	return items
}

func (g *group) run(gx, gy int) error {
	var (
		o     = g.pl.Obs
		tab   = g.pl.Shifts
		l     = o.NrSamplesPerDispersedChannel()
		np    = o.NrSamplesPerPaddedSecond()
		items = g.items(gx, gy)
		n     = len(g.cells)
	)
	for i := range g.acc {
		g.acc[i] = 0
	}
	first := gy * g.c.TotalDMsPerBlock
	last := first + g.c.TotalDMsPerBlock - 1
	for ch := 0; ch < o.NrChannels(); ch++ {
		row := g.input[ch*l : (ch+1)*l]
		if g.buffer != nil {
			minShift := tab.At(first, ch)
			maxShift := tab.At(last, ch)
			if err := g.stage(row, gx, items, minShift, maxShift); err != nil {
				return errors.Wrapf(err, "channel %d", ch)
			}
			for i, it := range items {
				for j, c := range g.cells {
					at := it.lx + c.Offset + tab.At(it.dm+c.DM, ch) - minShift
					if at >= len(g.buffer) {
						return errors.Errorf("channel %d: buffer read %d past %d", ch, at, len(g.buffer))
					}
					if !g.staged[at] {
						return errors.Errorf("channel %d: buffer slot %d not staged", ch, at)
					}
					g.acc[i*n+j] += g.buffer[at]
				}
			}
			continue
		}
		for i, it := range items {
			for j, c := range g.cells {
				at := it.sample + c.Offset + tab.At(it.dm+c.DM, ch)
				if at >= l {
					return errors.Errorf("channel %d: input read %d past %d", ch, at, l)
				}
				g.acc[i*n+j] += row[at]
			}
		}
	}
	for i, it := range items {
		for j, c := range g.cells {
			g.out[(it.dm+c.DM)*np+it.sample+c.Offset] = g.acc[i*n+j]
		}
	}
	return nil
}

// stage is the strided copy each work-item performs before the first
// barrier.
func (g *group) stage(row []float32, gx int, items []item, minShift, maxShift int) error {
	for i := range g.staged {
		g.staged[i] = false
	}
	var (
		t      = &g.pl.Tiling
		window = g.c.TotalSamplesPerBlock + (maxShift - minShift)
	)
	for _, it := range items {
		inShMem := it.ly*t.SamplesPerBlock + it.lx
		inGlMem := gx*g.c.TotalSamplesPerBlock + inShMem + minShift
		for ; inShMem < window; inShMem, inGlMem = inShMem+g.c.TotalThreads, inGlMem+g.c.TotalThreads {
			if inShMem >= len(g.buffer) {
				return errors.Errorf("buffer write %d past %d", inShMem, len(g.buffer))
			}
			if inGlMem >= len(row) {
				return errors.Errorf("input read %d past %d", inGlMem, len(row))
			}
			g.buffer[inShMem] = row[inGlMem]
			g.staged[inShMem] = true
		}
	}
	return nil
}

// Vector runs the SIMD kernel of a SIMD plan, lane by lane.
func Vector(pl *plan.Plan, input []float32) ([]float32, error) {
	if pl.Target != raw.SIMD {
		return nil, errors.Errorf("vector emulation of a %s plan", pl.Target)
	}
	var (
		o    = pl.Obs
		tab  = pl.Shifts
		t    = &pl.Tiling
		l    = o.NrSamplesPerDispersedChannel()
		np   = o.NrSamplesPerPaddedSecond()
		step = avx.Lanes * t.SamplesPerThread
	)
	if err := checkInput(o, input); err != nil {
		return nil, err
	}
	out := newOutput(o)
	cells := unroll.Cells(t.SamplesPerThread, t.DMsPerThread, avx.Lanes)
	acc := make([][avx.Lanes]float32, len(cells))
	for dm := 0; dm < o.NrDMs(); dm += t.DMsPerThread {
		for sample := 0; sample < o.NrSamplesPerSecond(); sample += step {
			for i := range acc {
				acc[i] = [avx.Lanes]float32{}
			}
			for ch := 0; ch < o.NrChannels(); ch++ {
				row := input[ch*l : (ch+1)*l]
				for i, c := range cells {
					at := sample + c.Offset + tab.At(dm+c.DM, ch)
					if at+avx.Lanes > l {
						return nil, errors.Errorf("DM %d channel %d: load %d..%d past %d",
							dm+c.DM, ch, at, at+avx.Lanes-1, l)
					}
					for lane := range acc[i] {
						acc[i][lane] += row[at+lane]
					}
				}
			}
			for i, c := range cells {
				copy(out[(dm+c.DM)*np+sample+c.Offset:], acc[i][:])
			}
		}
	}
	return out, nil
}
