package unroll

import (
	"strconv"
	"strings"
	"testing"

	"dedisp/internal/compile/author/cgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(g cgen.Gen) string {
	return string(g.Append(nil))
}

func tagged(tag string) *Templates {
	cell := func(c Cell) cgen.Gen {
		return cgen.Vb(tag + " " + string(c.Acc().Append(nil)) + " " + strconv.Itoa(c.Offset))
	}
	return &Templates{
		Def:   cell,
		Shift: func(dm int) cgen.Gen { return cgen.Vb("load " + string(Shift(dm).Append(nil))) },
		Sum:   cell,
		Store: func(c Cell) cgen.Gen {
			return cgen.Assign{
				Expr1: cgen.Vb("out[" + strconv.Itoa(c.DM) + "][" + strconv.Itoa(c.Offset) + "]"),
				Expr2: c.Acc(),
			}
		},
	}
}

func TestCellsOrder(t *testing.T) {
	cells := Cells(2, 3, 64)
	require.Len(t, cells, 6)
	assert.Equal(t, Cell{Sample: 0, DM: 0, Offset: 0}, cells[0])
	assert.Equal(t, Cell{Sample: 0, DM: 2, Offset: 0}, cells[2])
	assert.Equal(t, Cell{Sample: 1, DM: 0, Offset: 64}, cells[3])
	assert.Equal(t, Cell{Sample: 1, DM: 2, Offset: 64}, cells[5])
	assert.Panics(t, func() { Cells(0, 1, 1) })
	assert.Panics(t, func() { Cells(1, 0, 1) })
}

func TestBuildCompleteness(t *testing.T) {
	for _, sd := range [][2]int{{1, 1}, {1, 4}, {3, 1}, {4, 5}} {
		s, d := sd[0], sd[1]
		f := Build(s, d, 32, tagged("x"))
		for _, h := range []Hole{Defs, Sums, Stores} {
			require.Len(t, f[h], s*d, "%s %dx%d", h, s, d)
			text := render(f.At(h))
			for si := 0; si < s; si++ {
				for di := 0; di < d; di++ {
					name := render(Acc(si, di))
					// A trailing delimiter keeps DM1 from matching DM10.
					n := strings.Count(text, name+" ") + strings.Count(text, name+";")
					assert.Equal(t, 1, n, "%s: %s in %dx%d", h, name, s, d)
				}
			}
		}
		require.Len(t, f[Shifts], d)
	}
}

func TestBuildShiftsOrder(t *testing.T) {
	f := Build(2, 3, 8, tagged("x"))
	assert.Equal(t,
		"load shiftDM0;\nload shiftDM1;\nload shiftDM2;\n",
		render(f.At(Shifts)))
}

func TestBuildStoresTwoSamples(t *testing.T) {
	f := Build(2, 1, 64, tagged("x"))
	assert.Equal(t,
		"out[0][0] = dedispersedSample0DM0;\nout[0][64] = dedispersedSample1DM0;\n",
		render(f.At(Stores)))
}

func TestBuildNoPlaceholders(t *testing.T) {
	f := Build(3, 2, 16, tagged("x"))
	for h := Hole(0); h < holeCount; h++ {
		text := render(f.At(h))
		for _, marker := range []string{"{NUM}", "{DM_NUM}", "{OFFSET}", "<%", "%>"} {
			assert.NotContains(t, text, marker, h.String())
		}
	}
}

func TestBuildMissingTemplate(t *testing.T) {
	tm := tagged("x")
	tm.Sum = nil
	assert.Panics(t, func() { Build(1, 1, 1, tm) })
}
