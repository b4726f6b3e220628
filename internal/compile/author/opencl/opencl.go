// Package opencl authors the tiled OpenCL C dedispersion kernel.
//
// Work-group (gx, gy) covers TotalSamplesPerBlock samples starting at
// gx*TotalSamplesPerBlock and TotalDMsPerBlock DMs starting at
// gy*TotalDMsPerBlock. Work-item (lx, ly) owns samples lx + s*SamplesPerBlock
// and DMs ly*DMsPerThread + d of that block.
//
// With local memory, each channel's input window is staged in a __local
// buffer of TotalSamplesPerBlock plus the widest DM spread of any block,
// indexed relative to the block's first-DM shift. Two barriers per channel
// separate staging from accumulation and accumulation from the next
// channel's staging.
package opencl

import (
	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/author/cl"
	"dedisp/internal/compile/author/tile"
	"dedisp/internal/compile/author/unroll"
	"dedisp/internal/compile/plan"
)

const Name = "dedispersion"

var (
	vChannel  = cgen.Vb("channel")
	vDM       = cgen.Vb("dm")
	vSample   = cgen.Vb("sample")
	vInput    = cgen.Vb("input")
	vOutput   = cgen.Vb("output")
	vShifts   = cgen.Vb("shifts")
	vBuffer   = cgen.Vb("buffer")
	vInShMem  = cgen.Vb("inShMem")
	vInGlMem  = cgen.Vb("inGlMem")
	vMinShift = cgen.Vb("minShift")
	vMaxShift = cgen.Vb("maxShift")
)

type Kernel struct {
	pl     *plan.Plan
	consts tile.Consts
	elem   cgen.Gen
}

func New(pl *plan.Plan) *Kernel {
	return &Kernel{
		pl:     pl,
		consts: tile.Derive(pl),
		elem:   cgen.Vb(pl.Tiling.ElemType),
	}
}

func (k *Kernel) Consts() tile.Consts {
	return k.consts
}

func (k *Kernel) Append(to []byte) []byte {
	return cl.Kernel{
		ReturnType: cgen.Void,
		Name:       Name,
		Params:     k.params(),
		Body:       k.body(),
	}.Append(to)
}

func (k *Kernel) params() cgen.Gen {
	return cgen.CommaSpaced{
		cgen.Param{
			Type: cl.Global{Type: cgen.ConstRestrictPtr{Type: cgen.Const{Type: k.elem}}},
			What: vInput,
		},
		cgen.Param{
			Type: cl.Global{Type: cgen.Ptr{Type: k.elem}},
			What: vOutput,
		},
		cgen.Param{
			Type: cl.Global{Type: cgen.ConstRestrictPtr{Type: cgen.Const{Type: cgen.UnsignedInt}}},
			What: vShifts,
		},
	}
}

// blockDM is the first DM of the work-group.
func (k *Kernel) blockDM() cgen.Gen {
	return cgen.Paren{Inner: cgen.Mul{
		Expr1: cl.GroupID(1),
		Expr2: cgen.IntLit(k.consts.TotalDMsPerBlock),
	}}
}

// blockSample is the first sample of the work-group.
func (k *Kernel) blockSample() cgen.Gen {
	return cgen.Paren{Inner: cgen.Mul{
		Expr1: cl.GroupID(0),
		Expr2: cgen.IntLit(k.consts.TotalSamplesPerBlock),
	}}
}

// shiftAt is shifts[(dm * paddedChannels) + channel].
func (k *Kernel) shiftAt(dm cgen.Gen) cgen.Gen {
	return cgen.Elem{
		Arr: vShifts,
		Idx: cgen.Add{
			Expr1: cgen.Paren{Inner: cgen.Mul{
				Expr1: dm,
				Expr2: cgen.IntLit(k.pl.Obs.NrPaddedChannels()),
			}},
			Expr2: vChannel,
		},
	}
}

func (k *Kernel) inputRow() cgen.Gen {
	return cgen.Paren{Inner: cgen.Mul{
		Expr1: vChannel,
		Expr2: cgen.IntLit(k.pl.Obs.NrSamplesPerDispersedChannel()),
	}}
}

func (k *Kernel) uint(what, init cgen.Gen) cgen.Gen {
	return cgen.Var{Type: cgen.UnsignedInt, What: what, Init: init}
}

func (k *Kernel) templates() *unroll.Templates {
	t := &unroll.Templates{
		Def: func(c unroll.Cell) cgen.Gen {
			return cgen.Var{Type: k.elem, What: c.Acc(), Init: cgen.Zero}
		},
		Shift: func(dm int) cgen.Gen {
			return k.uint(unroll.Shift(dm), k.shiftAt(cgen.Paren{Inner: cgen.Add{
				Expr1: vDM,
				Expr2: cgen.IntLit(dm),
			}}))
		},
		Store: func(c unroll.Cell) cgen.Gen {
			return cgen.Assign{
				Expr1: cgen.Elem{
					Arr: vOutput,
					Idx: cgen.Add{
						Expr1: cgen.Paren{Inner: cgen.Mul{
							Expr1: cgen.Paren{Inner: cgen.Add{Expr1: vDM, Expr2: cgen.IntLit(c.DM)}},
							Expr2: cgen.IntLit(k.pl.Obs.NrSamplesPerPaddedSecond()),
						}},
						Expr2: cgen.Paren{Inner: cgen.Add{Expr1: vSample, Expr2: cgen.IntLit(c.Offset)}},
					},
				},
				Expr2: c.Acc(),
			}
		},
	}
	if k.pl.Tiling.LocalMemory {
		t.Sum = k.sumLocal
	} else {
		t.Sum = k.sumGlobal
	}
	return t
}

// sumLocal reads buffer[(lx + offset) + (shiftDM - minShift)].
func (k *Kernel) sumLocal(c unroll.Cell) cgen.Gen {
	return cgen.AddAssign{
		Expr1: c.Acc(),
		Expr2: cgen.Elem{
			Arr: vBuffer,
			Idx: cgen.Add{
				Expr1: cgen.Paren{Inner: cgen.Add{Expr1: cl.LocalID(0), Expr2: cgen.IntLit(c.Offset)}},
				Expr2: cgen.Paren{Inner: cgen.Sub{Expr1: unroll.Shift(c.DM), Expr2: vMinShift}},
			},
		},
	}
}

// sumGlobal reads input[(channel * L) + ((sample + offset) + shiftDM)].
func (k *Kernel) sumGlobal(c unroll.Cell) cgen.Gen {
	return cgen.AddAssign{
		Expr1: c.Acc(),
		Expr2: cgen.Elem{
			Arr: vInput,
			Idx: cgen.Add{
				Expr1: k.inputRow(),
				Expr2: cgen.Paren{Inner: cgen.Add{
					Expr1: cgen.Paren{Inner: cgen.Add{Expr1: vSample, Expr2: cgen.IntLit(c.Offset)}},
					Expr2: unroll.Shift(c.DM),
				}},
			},
		},
	}
}

func (k *Kernel) body() cgen.Gen {
	t := &k.pl.Tiling
	frags := unroll.Build(t.SamplesPerThread, t.DMsPerThread, t.SamplesPerBlock, k.templates())
	stmts := cgen.Stmts{
		k.uint(vDM, cgen.Add{
			Expr1: k.blockDM(),
			Expr2: cgen.Paren{Inner: cgen.Mul{Expr1: cl.LocalID(1), Expr2: cgen.IntLit(t.DMsPerThread)}},
		}),
		k.uint(vSample, cgen.Add{
			Expr1: k.blockSample(),
			Expr2: cl.LocalID(0),
		}),
	}
	var loop cgen.Stmts
	if t.LocalMemory {
		stmts = append(stmts,
			k.uint(vInShMem, cgen.Zero),
			k.uint(vInGlMem, cgen.Zero),
			k.uint(vMinShift, cgen.Zero),
			k.uint(vMaxShift, cgen.Zero),
			cgen.Var{
				Type: cl.Local{Type: k.elem},
				What: cgen.Elem{Arr: vBuffer, Idx: cgen.IntLit(k.consts.BufferLen)},
			},
		)
		loop = k.stagedLoop(frags)
	} else {
		loop = cgen.Stmts{
			frags.At(unroll.Shifts),
			frags.At(unroll.Sums),
		}
	}
	return append(stmts,
		cgen.Newline,
		frags.At(unroll.Defs),
		cgen.Newline,
		cgen.For{
			Init: k.uint(vChannel, cgen.Zero),
			Cond: cgen.CmpL{Expr1: vChannel, Expr2: cgen.IntLit(k.pl.Obs.NrChannels())},
			Post: cgen.IncPost{Expr: vChannel},
			Body: loop,
		},
		cgen.Newline,
		frags.At(unroll.Stores),
	)
}

func (k *Kernel) stagedLoop(frags *unroll.Fragments) cgen.Stmts {
	var (
		tdms    = k.consts.TotalDMsPerBlock
		tsmp    = cgen.IntLit(k.consts.TotalSamplesPerBlock)
		threads = cgen.IntLit(k.consts.TotalThreads)
	)
	lastDM := cgen.Paren{Inner: cgen.Sub{
		Expr1: cgen.Add{Expr1: k.blockDM(), Expr2: cgen.IntLit(tdms)},
		Expr2: cgen.IntLit(1),
	}}
	window := cgen.Add{
		Expr1: tsmp,
		Expr2: cgen.Paren{Inner: cgen.Sub{Expr1: vMaxShift, Expr2: vMinShift}},
	}
	return cgen.Stmts{
		cgen.Assign{Expr1: vMinShift, Expr2: k.shiftAt(k.blockDM())},
		frags.At(unroll.Shifts),
		cgen.Assign{Expr1: vMaxShift, Expr2: k.shiftAt(lastDM)},
		cgen.Newline,
		cgen.Assign{
			Expr1: vInShMem,
			Expr2: cgen.Add{
				Expr1: cgen.Paren{Inner: cgen.Mul{
					Expr1: cl.LocalID(1),
					Expr2: cgen.IntLit(k.pl.Tiling.SamplesPerBlock),
				}},
				Expr2: cl.LocalID(0),
			},
		},
		cgen.Assign{
			Expr1: vInGlMem,
			Expr2: cgen.Add{
				Expr1: cgen.Paren{Inner: cgen.Add{Expr1: k.blockSample(), Expr2: vInShMem}},
				Expr2: vMinShift,
			},
		},
		cgen.While{
			Cond: cgen.CmpL{Expr1: vInShMem, Expr2: window},
			Body: cgen.Stmts{
				cgen.Assign{
					Expr1: cgen.Elem{Arr: vBuffer, Idx: vInShMem},
					Expr2: cgen.Elem{
						Arr: vInput,
						Idx: cgen.Add{Expr1: k.inputRow(), Expr2: vInGlMem},
					},
				},
				cgen.AddAssign{Expr1: vInShMem, Expr2: threads},
				cgen.AddAssign{Expr1: vInGlMem, Expr2: threads},
			},
		},
		cl.Barrier,
		cgen.Newline,
		frags.At(unroll.Sums),
		cl.Barrier,
	}
}
