// Package params renders the comment that opens every kernel file: what
// was generated and the numbers baked into it as literals.
package params

import (
	"fmt"

	"dedisp/internal/compile/author/avx"
	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/author/tile"
	"dedisp/internal/compile/plan"
	"dedisp/internal/raw"

	"github.com/dustin/go-humanize"
)

var elemSizes = map[string]int{
	"char":           1,
	"unsigned char":  1,
	"short":          2,
	"unsigned short": 2,
	"half":           2,
	"int":            4,
	"unsigned int":   4,
	"float":          4,
	"long":           8,
	"unsigned long":  8,
	"double":         8,
}

// ElemSize is the size in bytes of a C element type, if known.
func ElemSize(typ string) (int, bool) {
	n, ok := elemSizes[typ]
	return n, ok
}

// LocalBytes describes the size of the local memory buffer, like
// "1362 floats (5.3 KiB)".
func LocalBytes(typ string, elems int) string {
	s := fmt.Sprintf("%s %ss", humanize.Comma(int64(elems)), typ)
	if n, ok := ElemSize(typ); ok {
		s += " (" + humanize.IBytes(uint64(n*elems)) + ")"
	}
	return s
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func Gen(pl *plan.Plan) cgen.Gen {
	var (
		o  = pl.Obs
		t  = &pl.Tiling
		c  = tile.Derive(pl)
		es = t.ElemType
	)
	if pl.Target == raw.SIMD {
		es = fmt.Sprintf("%s x %d", es, avx.Lanes)
	}
	lines := cgen.Comment{
		fmt.Sprintf("Dedispersion kernel %s, target %s, element %s.", pl.Prefix, pl.Target, es),
		"",
		fmt.Sprintf("Channels: %s (padded %s)", count(o.NrChannels()), count(o.NrPaddedChannels())),
		fmt.Sprintf("DMs: %s", count(o.NrDMs())),
		fmt.Sprintf("Samples per second: %s (padded %s)",
			count(o.NrSamplesPerSecond()), count(o.NrSamplesPerPaddedSecond())),
		fmt.Sprintf("Samples per dispersed channel: %s (max shift %s)",
			count(o.NrSamplesPerDispersedChannel()), count(pl.Shifts.Max())),
	}
	switch pl.Target {
	case raw.Scalar:
	case raw.OpenCL:
		lines = append(lines,
			fmt.Sprintf("Work-group: %d x %d work-items, each %d samples x %d DMs",
				t.SamplesPerBlock, t.DMsPerBlock, t.SamplesPerThread, t.DMsPerThread),
			fmt.Sprintf("Block: %d samples x %d DMs, %d work-items",
				c.TotalSamplesPerBlock, c.TotalDMsPerBlock, c.TotalThreads),
		)
		if t.LocalMemory {
			lines = append(lines,
				fmt.Sprintf("Local memory: %s, halo %d", LocalBytes(t.ElemType, c.BufferLen), c.Halo),
			)
		} else {
			lines = append(lines, "Local memory: none")
		}
	case raw.SIMD:
		lines = append(lines,
			fmt.Sprintf("Tile: %d samples x %d DMs",
				avx.Lanes*t.SamplesPerThread, t.DMsPerThread),
		)
	default:
		panic("bug")
	}
	return lines
}
