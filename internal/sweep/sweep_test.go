package sweep

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"dedisp/internal/compile"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const description = "Config Prefix=sw Target=OpenCL ElemType=float\n" +
	"Observation Channels=32 DMs=16 SamplesPerSecond=256 Padding=8\n" +
	"Band MinFreq=140 ChannelBandwidth=0.2 FirstDM=0 DMStep=1\n" +
	"Tiling SamplesPerBlock=8 DMsPerBlock=2 SamplesPerThread=2 DMsPerThread=2 LocalMemory=true\n"

var grid = Grid{
	SamplesPerBlock:  []int{8, 16},
	DMsPerBlock:      []int{2, 3},
	SamplesPerThread: []int{1, 2},
	DMsPerThread:     []int{2},
	LocalMemory:      []bool{false, true},
}

func TestTilings(t *testing.T) {
	ts := grid.Tilings()
	require.Len(t, ts, 16)
	assert.False(t, ts[0].LocalMemory)
	assert.True(t, ts[1].LocalMemory)
	assert.Equal(t, 16, ts[len(ts)-1].SamplesPerBlock)
	assert.Empty(t, (&Grid{SamplesPerBlock: []int{1}}).Tilings())
}

func TestRun(t *testing.T) {
	pr := must.M1(compile.Prepare(description))
	dir := t.TempDir()
	entries, err := Run(pr, &grid, Options{Dir: dir, Progress: io.Discard})
	require.NoError(t, err)
	// DMsPerBlock=3 gives 6 DMs per block, which does not divide 16.
	require.Len(t, entries, 8)
	for _, e := range entries {
		assert.Equal(t, 2, e.DMsPerBlock)
		src, err := os.ReadFile(filepath.Join(dir, e.File))
		require.NoError(t, err)
		assert.Equal(t, len(src), e.Bytes)
		assert.Equal(t, digester.FromBytes(src).Hex(), e.Digest)
		if e.LocalMemory {
			assert.GreaterOrEqual(t, e.BufferLen, e.SamplesPerBlock*e.SamplesPerThread)
		} else {
			assert.Zero(t, e.BufferLen)
		}
	}
	assert.Equal(t, "sw_8x2_1x2.cl", entries[0].File)
	assert.Equal(t, "sw_8x2_1x2_local.cl", entries[1].File)

	again, err := Run(pr, &grid, Options{})
	require.NoError(t, err)
	assert.Equal(t, entries, again, "generation is deterministic")
}

func TestManifestRoundTrip(t *testing.T) {
	pr := must.M1(compile.Prepare(description))
	entries := must.M1(Run(pr, &grid, Options{}))
	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, entries))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("file\tsamples_per_block\t")))
	back, err := ReadManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, entries, back)
}

func TestRunEmptyGrid(t *testing.T) {
	pr := must.M1(compile.Prepare(description))
	_, err := Run(pr, &Grid{}, Options{})
	assert.Error(t, err)
}
