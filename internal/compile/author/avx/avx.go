package avx

import "dedisp/internal/compile/author/cgen"

// Lanes is the number of float32 elements in one __m256 register.
const Lanes = 8

var M256 cgen.Gen = cgen.Vb("__m256")

func call(to []byte, fn string, args []cgen.Gen) []byte {
	return cgen.Call{
		Func: cgen.Vb(fn),
		Args: cgen.CommaSpaced(args),
	}.Append(to)
}

type Mm256AddPs []cgen.Gen

func (m Mm256AddPs) Append(to []byte) []byte {
	return call(to, "_mm256_add_ps", m)
}

type Mm256LoaduPs []cgen.Gen

func (m Mm256LoaduPs) Append(to []byte) []byte {
	return call(to, "_mm256_loadu_ps", m)
}

var Mm256SetzeroPs cgen.Gen = cgen.Call{
	Func: cgen.Vb("_mm256_setzero_ps"),
}

type Mm256StoreuPs []cgen.Gen

func (m Mm256StoreuPs) Append(to []byte) []byte {
	return call(to, "_mm256_storeu_ps", m)
}
