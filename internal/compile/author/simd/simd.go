// Package simd authors the host kernel for 8-wide AVX. An OpenMP loop nest
// walks DM tiles of DMsPerThread and sample tiles of Lanes*SamplesPerThread;
// each unrolled cell keeps one __m256 accumulator.
package simd

import (
	"dedisp/internal/compile/author/avx"
	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/author/scalar"
	"dedisp/internal/compile/author/unroll"
	"dedisp/internal/compile/plan"
)

var (
	vChannel = cgen.Vb("channel")
	vDM      = cgen.Vb("dm")
	vSample  = cgen.Vb("sample")
	vInput   = cgen.Vb("input")
	vOutput  = cgen.Vb("output")
	vShifts  = cgen.Vb("shifts")

	vNrSamplesPerChannel      = cgen.Vb("nrSamplesPerChannel")
	vNrDMs                    = cgen.Vb("nrDMs")
	vNrSamplesPerSecond       = cgen.Vb("nrSamplesPerSecond")
	vNrChannels               = cgen.Vb("nrChannels")
	vNrSamplesPerPaddedSecond = cgen.Vb("nrSamplesPerPaddedSecond")
)

var parallelFor cgen.Gen = cgen.Preprocessor{
	Head: cgen.Pragma,
	Tail: cgen.Vb("omp parallel for collapse(2)"),
}

type Kernel struct {
	pl *plan.Plan
}

func New(pl *plan.Plan) *Kernel {
	if pl.Tiling.ElemType != "float" {
		panic("bug")
	}
	return &Kernel{pl: pl}
}

func (k *Kernel) Append(to []byte) []byte {
	return cgen.FuncDef{
		ReturnType: cgen.Void,
		Name:       scalar.Name,
		Params:     scalar.Params(cgen.Float),
		Body:       k.body(),
	}.Append(to)
}

func plus(a cgen.Gen, n int) cgen.Gen {
	return cgen.Paren{Inner: cgen.Add{Expr1: a, Expr2: cgen.IntLit(n)}}
}

func (k *Kernel) templates() *unroll.Templates {
	stride := cgen.IntLit(k.pl.Obs.NrPaddedChannels())
	return &unroll.Templates{
		Def: func(c unroll.Cell) cgen.Gen {
			return cgen.Var{Type: avx.M256, What: c.Acc(), Init: avx.Mm256SetzeroPs}
		},
		Shift: func(dm int) cgen.Gen {
			return cgen.Var{
				Type: cgen.UnsignedInt,
				What: unroll.Shift(dm),
				Init: cgen.Elem{
					Arr: vShifts,
					Idx: cgen.Add{
						Expr1: cgen.Paren{Inner: cgen.Mul{Expr1: plus(vDM, dm), Expr2: stride}},
						Expr2: vChannel,
					},
				},
			}
		},
		Sum: func(c unroll.Cell) cgen.Gen {
			in := cgen.Elem{
				Arr: vInput,
				Idx: cgen.Add{
					Expr1: cgen.Paren{Inner: cgen.Mul{Expr1: vChannel, Expr2: vNrSamplesPerChannel}},
					Expr2: cgen.Paren{Inner: cgen.Add{
						Expr1: plus(vSample, c.Offset),
						Expr2: unroll.Shift(c.DM),
					}},
				},
			}
			return cgen.Assign{
				Expr1: c.Acc(),
				Expr2: avx.Mm256AddPs{
					c.Acc(),
					avx.Mm256LoaduPs{cgen.Addr{Expr: in}},
				},
			}
		},
		Store: func(c unroll.Cell) cgen.Gen {
			out := cgen.Elem{
				Arr: vOutput,
				Idx: cgen.Add{
					Expr1: cgen.Paren{Inner: cgen.Mul{
						Expr1: plus(vDM, c.DM),
						Expr2: vNrSamplesPerPaddedSecond,
					}},
					Expr2: plus(vSample, c.Offset),
				},
			}
			return avx.Mm256StoreuPs{cgen.Addr{Expr: out}, c.Acc()}
		},
	}
}

func (k *Kernel) body() cgen.Gen {
	var (
		t    = &k.pl.Tiling
		step = avx.Lanes * t.SamplesPerThread
	)
	frags := unroll.Build(t.SamplesPerThread, t.DMsPerThread, avx.Lanes, k.templates())
	tile := func(v, bound cgen.Gen, by int, body cgen.Gen) cgen.Gen {
		return cgen.For{
			Init: cgen.Var{Type: cgen.UnsignedInt, What: v, Init: cgen.Zero},
			Cond: cgen.CmpL{Expr1: v, Expr2: bound},
			Post: cgen.AddAssign{Expr1: v, Expr2: cgen.IntLit(by)},
			Body: body,
		}
	}
	return cgen.Stmts{
		parallelFor,
		tile(vDM, vNrDMs, t.DMsPerThread, cgen.Stmts{
			tile(vSample, vNrSamplesPerSecond, step, cgen.Stmts{
				frags.At(unroll.Defs),
				cgen.For{
					Init: cgen.Var{Type: cgen.UnsignedInt, What: vChannel, Init: cgen.Zero},
					Cond: cgen.CmpL{Expr1: vChannel, Expr2: vNrChannels},
					Post: cgen.IncPost{Expr: vChannel},
					Body: cgen.Stmts{
						frags.At(unroll.Shifts),
						frags.At(unroll.Sums),
					},
				},
				frags.At(unroll.Stores),
			}),
		}),
	}
}
