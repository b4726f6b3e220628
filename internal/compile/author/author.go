package author

import (
	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/author/include"
	"dedisp/internal/compile/author/opencl"
	"dedisp/internal/compile/author/params"
	"dedisp/internal/compile/author/scalar"
	"dedisp/internal/compile/author/sections"
	"dedisp/internal/compile/author/simd"
	"dedisp/internal/compile/author/tobuild"
	"dedisp/internal/compile/plan"
	"dedisp/internal/raw"
)

// Implement returns fresh kernel source for the plan. It never fails:
// plan.New has already rejected every plan it cannot author.
func Implement(pl *plan.Plan) []byte {
	st := state{pl: pl}
	st.stages()
	return st.sections.Join()
}

type state struct {
	pl       *plan.Plan
	sections sections.Sections
}

func (st *state) stages() {
	st.stage1()
	st.stage2()
	st.stage3()
}

func (st *state) stage1() {
	st.sections.Append(sections.ToBuild, tobuild.Gen(st.pl), cgen.Newline)
	st.sections.Append(sections.Params, params.Gen(st.pl), cgen.Newline)
}

func (st *state) stage2() {
	if inc := include.Gen(st.pl); inc != nil {
		st.sections.Append(sections.Include, inc, cgen.Newline)
	}
}

func (st *state) stage3() {
	var kernel cgen.Gen
	switch st.pl.Target {
	case raw.Scalar:
		kernel = scalar.New(st.pl)
	case raw.OpenCL:
		kernel = opencl.New(st.pl)
	case raw.SIMD:
		kernel = simd.New(st.pl)
	default:
		panic("bug")
	}
	st.sections.Append(sections.Kernel, kernel)
}
