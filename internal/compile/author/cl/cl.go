// Package cl holds the OpenCL C vocabulary used by the kernel authors:
// address space qualifiers, work-item builtins and the local barrier.
package cl

import "dedisp/internal/compile/author/cgen"

const (
	global = "__global"
	local  = "__local"
	kernel = "__kernel"
)

type Global struct {
	Type cgen.Gen
}

func (g Global) Append(to []byte) []byte {
	to = append(to, global+" "...)
	to = g.Type.Append(to)
	return to
}

type Local struct {
	Type cgen.Gen
}

func (l Local) Append(to []byte) []byte {
	to = append(to, local+" "...)
	to = l.Type.Append(to)
	return to
}

type Kernel cgen.FuncDef

func (k Kernel) Append(to []byte) []byte {
	to = append(to, kernel+" "...)
	to = cgen.FuncDef(k).Append(to)
	return to
}

// GroupID is get_group_id(dim).
type GroupID int

func (g GroupID) Append(to []byte) []byte {
	return cgen.Call{
		Func: cgen.Vb("get_group_id"),
		Args: cgen.IntLit(g),
	}.Append(to)
}

// LocalID is get_local_id(dim).
type LocalID int

func (l LocalID) Append(to []byte) []byte {
	return cgen.Call{
		Func: cgen.Vb("get_local_id"),
		Args: cgen.IntLit(l),
	}.Append(to)
}

var Barrier cgen.Gen = cgen.Call{
	Func: cgen.Vb("barrier"),
	Args: cgen.Vb("CLK_LOCAL_MEM_FENCE"),
}
