package compile

import (
	"strings"
	"testing"

	"dedisp/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	config      = "Config Prefix=small Target=OpenCL ElemType=float\n"
	observation = "Observation Channels=64 DMs=32 SamplesPerSecond=1024 Padding=32\n"
	band        = "Band MinFreq=1425 ChannelBandwidth=0.195 FirstDM=0 DMStep=10\n"
	tiling      = "Tiling SamplesPerBlock=32 DMsPerBlock=8 SamplesPerThread=4 DMsPerThread=2 LocalMemory=true\n"
)

func TestCompile(t *testing.T) {
	res, err := Compile(config + observation + band + tiling)
	require.NoError(t, err)
	assert.Equal(t, "small", res.Name)
	assert.Equal(t, ".cl", res.Ext)
	src := string(res.Src)
	assert.Contains(t, src, "__kernel void dedispersion(")
	assert.Contains(t, src, "__local float buffer[")
	assert.Equal(t, 2, strings.Count(src, "barrier(CLK_LOCAL_MEM_FENCE);"))

	o := res.Plan.Obs
	assert.Equal(t, 64, res.Plan.Shifts.NrChannels())
	assert.GreaterOrEqual(t, o.NrSamplesPerDispersedChannel(), o.NrSamplesPerSecond()+res.Plan.Shifts.Max())
	assert.Zero(t, o.NrSamplesPerDispersedChannel()%o.Padding())
}

func TestCompileTargets(t *testing.T) {
	for _, tc := range []struct {
		target raw.Target
		ext    string
		frag   string
	}{
		{raw.Scalar, ".c", "void dedispersion(const unsigned int nrSamplesPerChannel"},
		{raw.SIMD, ".c", "_mm256_add_ps("},
	} {
		text := strings.Replace(config, "OpenCL", tc.target.String(), 1) + observation + band + tiling
		res, err := Compile(text)
		require.NoError(t, err, tc.target.String())
		assert.Equal(t, tc.ext, res.Ext)
		assert.Contains(t, string(res.Src), tc.frag)
	}
}

func TestCompileRejects(t *testing.T) {
	for _, tc := range []struct {
		text string
		msg  string
	}{
		{observation + band + tiling, "missing Config line"},
		{config + band + tiling, "missing Observation line"},
		{config + observation + tiling, "missing Band line"},
		{config + observation + band, "missing Tiling line"},
		{config + observation + band + tiling + config, "lines 1 and 5: more than one Config line"},
		{
			config + observation + band + strings.Replace(tiling, "DMsPerBlock=8", "DMsPerBlock=5", 1),
			"line 4: OpenCL plan: 32 DMs is not a multiple of 10 DMs per block",
		},
		{
			strings.Replace(config, "ElemType=float", "ElemType=double", 1) + observation + band +
				tiling,
			"",
		},
		{
			strings.Replace(config, "Target=OpenCL ElemType=float", "Target=SIMD ElemType=double", 1) +
				observation + band + tiling,
			"the 8-wide kernel needs float",
		},
		{
			config + observation + "Band MinFreq=0.001 ChannelBandwidth=0.001 FirstDM=0 DMStep=1000\n" +
				tiling,
			"lines 2 and 3: shifts: channel 0",
		},
	} {
		_, err := Compile(tc.text)
		if tc.msg == "" {
			assert.NoError(t, err)
			continue
		}
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compile failed")
		assert.Contains(t, err.Error(), tc.msg)
	}
}

func TestCompileParseError(t *testing.T) {
	_, err := Compile("Config Prefix=x\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failed")
}

func TestPreparePlanMany(t *testing.T) {
	pr, err := Prepare(config + observation + band + tiling)
	require.NoError(t, err)
	tl := *pr.Tiling
	tl.LineNum = 0
	tl.LocalMemory = false
	pl, err := pr.Plan(tl)
	require.NoError(t, err)
	assert.False(t, pl.Tiling.LocalMemory)
	assert.Same(t, pr.Shifts, pl.Shifts)

	tl.SamplesPerThread = 3
	_, err = pr.Plan(tl)
	assert.Error(t, err)
}
