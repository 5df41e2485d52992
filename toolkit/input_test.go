package toolkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput(t *testing.T) {
	ctx := New(WithEnviron(map[string]string{
		"INPUT_NODE_VERSION": " 20.x ",
		"INPUT_NODE-VERSION": "18.x",
		"INPUT_PLUGIN_NAME":  "speller",
	}))

	assert.Equal(t, "18.x", ctx.Input("node-version"))
	assert.Equal(t, "20.x", ctx.Input("node version"))
	assert.Equal(t, "speller", ctx.Input("Plugin Name"))
	assert.Empty(t, ctx.Input("missing"))
}

func TestRequiredInput(t *testing.T) {
	ctx := New(WithEnviron(map[string]string{"INPUT_TOKEN": "abc"}))

	value, err := ctx.RequiredInput("token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	_, err = ctx.RequiredInput("missing")
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestBoolInput(t *testing.T) {
	ctx := New(WithEnviron(map[string]string{
		"INPUT_A": "true",
		"INPUT_B": "False",
		"INPUT_C": "TRUE",
		"INPUT_D": "yes",
	}))

	a, err := ctx.BoolInput("a")
	require.NoError(t, err)
	assert.True(t, a)

	b, err := ctx.BoolInput("b")
	require.NoError(t, err)
	assert.False(t, b)

	c, err := ctx.BoolInput("c")
	require.NoError(t, err)
	assert.True(t, c)

	_, err = ctx.BoolInput("d")
	assert.Error(t, err)

	_, err = ctx.BoolInput("missing")
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestMultilineInput(t *testing.T) {
	ctx := New(WithEnviron(map[string]string{
		"INPUT_VERSIONS": "3.10\r\n3.11\n\n  3.12  \n",
	}))

	assert.Equal(t, []string{"3.10", "3.11", "3.12"}, ctx.MultilineInput("versions"))
	assert.Nil(t, ctx.MultilineInput("missing"))
}

func TestInputKeyNormalization(t *testing.T) {
	assert.Equal(t, "INPUT_NODE_VERSION", inputKey("node version"))
	assert.Equal(t, "INPUT_NODE-VERSION", inputKey("node-version"))
	assert.Equal(t, "INPUT_TOKEN", inputKey("  token  "))
}
