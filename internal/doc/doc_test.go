package doc

import (
	"strings"
	"testing"

	"dedisp/internal/compile"
	"dedisp/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadsCoverGuide(t *testing.T) {
	require.Len(t, raw.Guide, len(Heads))
	for _, head := range &Heads {
		assert.Contains(t, raw.Guide, head)
	}
}

func TestExampleCompiles(t *testing.T) {
	res, err := compile.Compile(Example())
	require.NoError(t, err)
	assert.Equal(t, "dedisp", res.Name)
	assert.Equal(t, ".cl", res.Ext)
}

func TestBytes(t *testing.T) {
	text := string(Bytes())
	for _, head := range &Heads {
		assert.Contains(t, text, "\n"+head+"\n")
	}
	assert.Contains(t, text, "Choices: Scalar, OpenCL, SIMD.")
	for _, ln := range strings.Split(text, "\n") {
		if !strings.Contains(ln, raw.Binder) {
			assert.LessOrEqual(t, len(ln), width, ln)
		}
	}
}
