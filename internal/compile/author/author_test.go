package author

import (
	"fmt"
	"strings"
	"testing"

	"dedisp/internal/compile/author/avx"
	"dedisp/internal/compile/author/unroll"
	"dedisp/internal/compile/plan"
	"dedisp/internal/obs"
	"dedisp/internal/raw"
	"dedisp/internal/shifts"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hand = []uint32{
	0, 0, 0, 0,
	3, 2, 1, 0,
	6, 4, 2, 0,
	9, 6, 3, 0,
}

func handPlan(t *testing.T, target raw.Target, tl plan.Tiling) *plan.Plan {
	o := must.M1(obs.New(obs.Params{Channels: 4, DMs: 4, SamplesPerSecond: 16, Padding: 4}))
	tab := must.M1(shifts.New(4, 4, 4, hand))
	o = must.M1(o.WithDispersedSamples(16 + tab.Max()))
	if tl.ElemType == "" {
		tl.ElemType = "float"
	}
	pl, err := plan.New("test", target, tl, o, tab)
	require.NoError(t, err)
	return pl
}

func assertContainsAll(t *testing.T, src string, frags ...string) {
	t.Helper()
	for _, frag := range frags {
		assert.Contains(t, src, frag)
	}
}

func assertWellFormed(t *testing.T, src string) {
	t.Helper()
	assert.Equal(t, strings.Count(src, "{"), strings.Count(src, "}"))
	assert.Equal(t, strings.Count(src, "("), strings.Count(src, ")"))
	assert.True(t, strings.HasSuffix(src, "}\n"))
	for _, marker := range []string{"{NUM}", "{DM_NUM}", "{OFFSET}", "<%", "%>"} {
		assert.NotContains(t, src, marker)
	}
}

var one = plan.Tiling{SamplesPerBlock: 1, DMsPerBlock: 1, SamplesPerThread: 1, DMsPerThread: 1}

func TestScalar(t *testing.T) {
	src := string(Implement(handPlan(t, raw.Scalar, one)))
	assertWellFormed(t, src)
	assertContainsAll(t, src,
		"// gcc -c -w -std=c99 -O3 test.c\n",
		"void dedispersion(const unsigned int nrSamplesPerChannel, const unsigned int nrDMs, "+
			"const unsigned int nrSamplesPerSecond, const unsigned int nrChannels, "+
			"const unsigned int nrSamplesPerPaddedSecond, const float * restrict const input, "+
			"float * restrict const output, const unsigned int * restrict const shifts) {\n",
		"\tfor (unsigned int dm = 0; dm < nrDMs; dm++) {\n",
		"\t\tfor (unsigned int sample = 0; sample < nrSamplesPerSecond; sample++) {\n",
		"\t\t\tfloat dedispersedSample0DM0 = 0;\n",
		"\t\t\tfor (unsigned int channel = 0; channel < nrChannels; channel++) {\n",
		"\t\t\t\tunsigned int shiftDM0 = shifts[((dm + 0) * 4) + channel];\n",
		"\t\t\t\tdedispersedSample0DM0 += input[(channel * nrSamplesPerChannel) + ((sample + 0) + shiftDM0)];\n",
		"\t\t\toutput[((dm + 0) * nrSamplesPerPaddedSecond) + (sample + 0)] = dedispersedSample0DM0;\n",
	)
	assert.NotContains(t, src, "#include")
}

func TestOpenCLGlobal(t *testing.T) {
	tl := plan.Tiling{SamplesPerBlock: 4, DMsPerBlock: 2, SamplesPerThread: 1, DMsPerThread: 1}
	src := string(Implement(handPlan(t, raw.OpenCL, tl)))
	assertWellFormed(t, src)
	assertContainsAll(t, src,
		"__kernel void dedispersion(__global const float * restrict const input, "+
			"__global float * output, __global const unsigned int * restrict const shifts) {\n",
		"\tunsigned int dm = (get_group_id(1) * 2) + (get_local_id(1) * 1);\n",
		"\tunsigned int sample = (get_group_id(0) * 4) + get_local_id(0);\n",
		"\tfor (unsigned int channel = 0; channel < 4; channel++) {\n",
		"\t\tunsigned int shiftDM0 = shifts[((dm + 0) * 4) + channel];\n",
		"\t\tdedispersedSample0DM0 += input[(channel * 28) + ((sample + 0) + shiftDM0)];\n",
		"\toutput[((dm + 0) * 16) + (sample + 0)] = dedispersedSample0DM0;\n",
		"// Local memory: none\n",
	)
	assert.NotContains(t, src, "barrier")
	assert.NotContains(t, src, "__local")
	assert.NotContains(t, src, "#include")
}

func TestOpenCLLocal(t *testing.T) {
	tl := plan.Tiling{
		SamplesPerBlock: 4, DMsPerBlock: 2,
		SamplesPerThread: 2, DMsPerThread: 1,
		LocalMemory: true,
	}
	src := string(Implement(handPlan(t, raw.OpenCL, tl)))
	assertWellFormed(t, src)
	assertContainsAll(t, src,
		"\t__local float buffer[11];\n",
		"\t\tminShift = shifts[((get_group_id(1) * 2) * 4) + channel];\n",
		"\t\tmaxShift = shifts[(((get_group_id(1) * 2) + 2 - 1) * 4) + channel];\n",
		"\t\tinShMem = (get_local_id(1) * 4) + get_local_id(0);\n",
		"\t\tinGlMem = ((get_group_id(0) * 8) + inShMem) + minShift;\n",
		"\t\twhile (inShMem < 8 + (maxShift - minShift)) {\n",
		"\t\t\tbuffer[inShMem] = input[(channel * 28) + inGlMem];\n",
		"\t\t\tinShMem += 8;\n",
		"\t\t\tinGlMem += 8;\n",
		"\t\tdedispersedSample1DM0 += buffer[(get_local_id(0) + 4) + (shiftDM0 - minShift)];\n",
		"\toutput[((dm + 0) * 16) + (sample + 4)] = dedispersedSample1DM0;\n",
		"// Local memory: 11 floats (44 B), halo 3\n",
	)
	assert.Equal(t, 2, strings.Count(src, "barrier(CLK_LOCAL_MEM_FENCE);"))
	staged := strings.Index(src, "buffer[inShMem] = ")
	first := strings.Index(src, "barrier(")
	sum := strings.Index(src, "+= buffer[")
	second := strings.LastIndex(src, "barrier(")
	assert.True(t, staged < first && first < sum && sum < second, "barrier phases out of order")
}

func TestSIMD(t *testing.T) {
	tl := plan.Tiling{SamplesPerBlock: 1, DMsPerBlock: 1, SamplesPerThread: 2, DMsPerThread: 2}
	src := string(Implement(handPlan(t, raw.SIMD, tl)))
	assertWellFormed(t, src)
	assertContainsAll(t, src,
		"// gcc -c -w -std=c99 -fopenmp -O3 -mavx test.c\n",
		"#include <immintrin.h>\n",
		"\t#pragma omp parallel for collapse(2)\n",
		"\tfor (unsigned int dm = 0; dm < nrDMs; dm += 2) {\n",
		"\t\tfor (unsigned int sample = 0; sample < nrSamplesPerSecond; sample += 16) {\n",
		"\t\t\t__m256 dedispersedSample1DM1 = _mm256_setzero_ps();\n",
		"dedispersedSample1DM1 = _mm256_add_ps(dedispersedSample1DM1, "+
			"_mm256_loadu_ps(&input[(channel * nrSamplesPerChannel) + ((sample + 8) + shiftDM1)]));\n",
		"\t\t\t_mm256_storeu_ps(&output[((dm + 1) * nrSamplesPerPaddedSecond) + (sample + 8)], dedispersedSample1DM1);\n",
	)
	for _, op := range []string{"_mm256_loadu_ps(", "_mm256_add_ps(", "_mm256_storeu_ps("} {
		assert.Equal(t, 4, strings.Count(src, op), op)
	}
}

func TestImplementDeterministic(t *testing.T) {
	for _, target := range []raw.Target{raw.Scalar, raw.OpenCL, raw.SIMD} {
		pl := handPlan(t, target, one)
		a := Implement(pl)
		b := Implement(pl)
		require.Equal(t, a, b, target.String())
		a[0] ^= 1
		assert.NotEqual(t, a, b, "sources share storage")
	}
}

// Each unrolled cell must be read and stored at the offset unroll.Cells
// assigns it, since the reference schedules index through the same cells.
func TestCellIndexTerms(t *testing.T) {
	for _, tc := range []struct {
		target raw.Target
		local  bool
		s, d   int
	}{
		{raw.OpenCL, false, 1, 1},
		{raw.OpenCL, false, 2, 2},
		{raw.OpenCL, true, 2, 4},
		{raw.OpenCL, true, 4, 1},
		{raw.SIMD, false, 1, 4},
		{raw.SIMD, false, 2, 2},
	} {
		tl := plan.Tiling{
			SamplesPerBlock: 2, DMsPerBlock: 1,
			SamplesPerThread: tc.s, DMsPerThread: tc.d,
			LocalMemory: tc.local,
		}
		src := string(Implement(handPlan(t, tc.target, tl)))
		name := fmt.Sprintf("%s %dx%d local=%v", tc.target, tc.s, tc.d, tc.local)

		stride := tl.SamplesPerBlock
		if tc.target == raw.SIMD {
			stride = avx.Lanes
		}
		for _, c := range unroll.Cells(tc.s, tc.d, stride) {
			acc := fmt.Sprintf("dedispersedSample%dDM%d", c.Sample, c.DM)
			var sum, store string
			switch {
			case tc.target == raw.SIMD:
				sum = fmt.Sprintf("%s = _mm256_add_ps(%s, _mm256_loadu_ps("+
					"&input[(channel * nrSamplesPerChannel) + ((sample + %d) + shiftDM%d)]));",
					acc, acc, c.Offset, c.DM)
				store = fmt.Sprintf("_mm256_storeu_ps("+
					"&output[((dm + %d) * nrSamplesPerPaddedSecond) + (sample + %d)], %s);",
					c.DM, c.Offset, acc)
			case tc.local:
				sum = fmt.Sprintf("%s += buffer[(get_local_id(0) + %d) + (shiftDM%d - minShift)];",
					acc, c.Offset, c.DM)
				store = fmt.Sprintf("output[((dm + %d) * 16) + (sample + %d)] = %s;", c.DM, c.Offset, acc)
			default:
				sum = fmt.Sprintf("%s += input[(channel * 28) + ((sample + %d) + shiftDM%d)];",
					acc, c.Offset, c.DM)
				store = fmt.Sprintf("output[((dm + %d) * 16) + (sample + %d)] = %s;", c.DM, c.Offset, acc)
			}
			assert.Equal(t, 1, strings.Count(src, sum), "%s: %s", name, sum)
			assert.Equal(t, 1, strings.Count(src, store), "%s: %s", name, store)
		}
	}
}
