package tobuild

import (
	"strings"

	"dedisp/internal/compile/author/cgen"
	"dedisp/internal/compile/plan"
	"dedisp/internal/raw"
)

// Ext is the file extension of the generated source.
func Ext(pl *plan.Plan) string {
	switch pl.Target {
	case raw.Scalar, raw.SIMD:
		return ".c"
	case raw.OpenCL:
		return ".cl"
	default:
		panic("bug")
	}
}

func Gen(pl *plan.Plan) cgen.Gen {
	file := pl.Prefix + Ext(pl)
	switch pl.Target {
	case raw.Scalar:
		return cgen.Comment{
			"To build an object file:",
			strings.Join([]string{
				"gcc",
				"-c",
				"-w",
				"-std=c99",
				"-O3",
				file,
			}, " "),
		}
	case raw.SIMD:
		return cgen.Comment{
			"To build an object file:",
			strings.Join([]string{
				"gcc",
				"-c",
				"-w",
				"-std=c99",
				"-fopenmp",
				"-O3",
				"-mavx",
				file,
			}, " "),
		}
	case raw.OpenCL:
		return cgen.Comment{
			"Build at run time with clCreateProgramWithSource and",
			"clBuildProgram, then create the kernel named dedispersion.",
			"Launch it on a two dimensional NDRange: dimension 0 covers the",
			"samples and dimension 1 covers the DMs.",
		}
	default:
		panic("bug")
	}
}
