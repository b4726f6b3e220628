// Package scalar authors the plain C reference kernel, the canonical
// dm/sample/channel triple loop that every tiled kernel must agree with.
package scalar

import (
	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/author/unroll"
	"dedisp/internal/compile/plan"
)

const Name = "dedispersion"

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

// Params is the host-callable parameter list shared with the SIMD kernel.
func Params(elem cgen.Gen) cgen.Gen {
	count := func(what cgen.Gen) cgen.Gen {
		return cgen.Param{Type: cgen.Const{Type: cgen.UnsignedInt}, What: what}
	}
	return cgen.CommaSpaced{
		count(vNrSamplesPerChannel),
		count(vNrDMs),
		count(vNrSamplesPerSecond),
		count(vNrChannels),
		count(vNrSamplesPerPaddedSecond),
		cgen.Param{Type: cgen.ConstRestrictPtr{Type: cgen.Const{Type: elem}}, What: vInput},
		cgen.Param{Type: cgen.ConstRestrictPtr{Type: elem}, What: vOutput},
		cgen.Param{Type: cgen.ConstRestrictPtr{Type: cgen.Const{Type: cgen.UnsignedInt}}, What: vShifts},
	}
}

type Kernel struct {
	pl   *plan.Plan
	elem cgen.Gen
}

func New(pl *plan.Plan) *Kernel {
	return &Kernel{
		pl:   pl,
		elem: cgen.Vb(pl.Tiling.ElemType),
	}
}

func (k *Kernel) Append(to []byte) []byte {
	return cgen.FuncDef{
		ReturnType: cgen.Void,
		Name:       Name,
		Params:     Params(k.elem),
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
			return cgen.Var{Type: k.elem, What: c.Acc(), Init: cgen.Zero}
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
			return cgen.AddAssign{
				Expr1: c.Acc(),
				Expr2: cgen.Elem{
					Arr: vInput,
					Idx: cgen.Add{
						Expr1: cgen.Paren{Inner: cgen.Mul{Expr1: vChannel, Expr2: vNrSamplesPerChannel}},
						Expr2: cgen.Paren{Inner: cgen.Add{
							Expr1: plus(vSample, c.Offset),
							Expr2: unroll.Shift(c.DM),
						}},
					},
				},
			}
		},
		Store: func(c unroll.Cell) cgen.Gen {
			return cgen.Assign{
				Expr1: cgen.Elem{
					Arr: vOutput,
					Idx: cgen.Add{
						Expr1: cgen.Paren{Inner: cgen.Mul{
							Expr1: plus(vDM, c.DM),
							Expr2: vNrSamplesPerPaddedSecond,
						}},
						Expr2: plus(vSample, c.Offset),
					},
				},
				Expr2: c.Acc(),
			}
		},
	}
}

func loop(v, bound, body cgen.Gen) cgen.Gen {
	return cgen.For{
		Init: cgen.Var{Type: cgen.UnsignedInt, What: v, Init: cgen.Zero},
		Cond: cgen.CmpL{Expr1: v, Expr2: bound},
		Post: cgen.IncPost{Expr: v},
		Body: body,
	}
}

func (k *Kernel) body() cgen.Gen {
	frags := unroll.Build(1, 1, 1, k.templates())
	return cgen.Stmts{
		loop(vDM, vNrDMs, cgen.Stmts{
			loop(vSample, vNrSamplesPerSecond, cgen.Stmts{
				frags.At(unroll.Defs),
				loop(vChannel, vNrChannels, cgen.Stmts{
					frags.At(unroll.Shifts),
					frags.At(unroll.Sums),
				}),
				frags.At(unroll.Stores),
			}),
		}),
	}
}
