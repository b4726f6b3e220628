package include

import (
	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/plan"
	"dedisp/internal/raw"
)

// Gen is nil when the target needs no headers.
func Gen(pl *plan.Plan) cgen.Gen {
	switch pl.Target {
	case raw.Scalar, raw.OpenCL:
		return nil
	case raw.SIMD:
		return cgen.Preprocessor{
			Head: cgen.Include,
			Tail: cgen.AngleBracketed("immintrin.h"),
		}
	default:
		panic("bug")
	}
}
