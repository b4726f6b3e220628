// Package unroll expands a thread's SamplesPerThread x DMsPerThread block
// of output cells into the four statement lists every kernel skeleton
// splices in: accumulator definitions, per-channel shift loads, per-channel
// accumulations and final stores.
package unroll

import (
	"strconv"

	"dedisp/internal/compile/author/cgen"
)

type Hole int

const (
	Defs Hole = iota
	Shifts
	Sums
	Stores
	holeCount
)

var HoleStrings = [holeCount]string{
	Defs:   "defs",
	Shifts: "shifts",
	Sums:   "sums",
	Stores: "stores",
}

func (h Hole) String() string {
	return HoleStrings[h]
}

// Cell is one unrolled output element of a thread. Offset is the element
// displacement of Sample along the sample dimension.
type Cell struct {
	Sample int
	DM     int
	Offset int
}

// Acc names the accumulator of the cell.
func (c Cell) Acc() cgen.Gen {
	return Acc(c.Sample, c.DM)
}

func Acc(sample, dm int) cgen.Gen {
	return cgen.Vb("dedispersedSample" + strconv.Itoa(sample) + "DM" + strconv.Itoa(dm))
}

// Shift names the variable that holds the current channel's shift for the
// thread's dm-th DM.
func Shift(dm int) cgen.Gen {
	return cgen.Vb("shiftDM" + strconv.Itoa(dm))
}

// Templates produce one statement per cell (or per DM for Shift).
type Templates struct {
	Def   func(Cell) cgen.Gen
	Shift func(dm int) cgen.Gen
	Sum   func(Cell) cgen.Gen
	Store func(Cell) cgen.Gen
}

type Fragments [holeCount]cgen.Stmts

func (f *Fragments) At(h Hole) cgen.Gen {
	return f[h]
}

// Cells lists the samples x dms cells sample-major, dm-minor, with
// Offset = Sample*stride.
func Cells(samples, dms, stride int) []Cell {
	if samples < 1 || dms < 1 {
		panic("bug")
	}
	cells := make([]Cell, 0, samples*dms)
	for s := 0; s < samples; s++ {
		for d := 0; d < dms; d++ {
			cells = append(cells, Cell{Sample: s, DM: d, Offset: s * stride})
		}
	}
	return cells
}

// Build instantiates the templates. Shift loads come first in increasing
// DM order since the sums refer to them; the other three kinds follow the
// Cells order so each of the samples*dms cells appears exactly once in each.
func Build(samples, dms, stride int, t *Templates) *Fragments {
	if t.Def == nil || t.Shift == nil || t.Sum == nil || t.Store == nil {
		panic("bug")
	}
	f := new(Fragments)
	f[Shifts] = make(cgen.Stmts, dms)
	for d := range f[Shifts] {
		f[Shifts][d] = t.Shift(d)
	}
	cells := Cells(samples, dms, stride)
	f[Defs] = make(cgen.Stmts, len(cells))
	f[Sums] = make(cgen.Stmts, len(cells))
	f[Stores] = make(cgen.Stmts, len(cells))
	for i, c := range cells {
		f[Defs][i] = t.Def(c)
		f[Sums][i] = t.Sum(c)
		f[Stores][i] = t.Store(c)
	}
	return f
}
