package example

import (
	"testing"

	"dedisp/internal/compile"
	"dedisp/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamplesCompile(t *testing.T) {
	for _, name := range Names() {
		text := Generate(name)
		require.NotNil(t, text, name)
		nodes, err := raw.Parse(string(text))
		require.NoError(t, err, name)
		assert.Len(t, nodes, 4, name)
		res, err := compile.Compile(string(text))
		require.NoError(t, err, name)
		assert.NotEmpty(t, res.Src, name)
	}
	assert.Nil(t, Generate("ResNet50"))
}
