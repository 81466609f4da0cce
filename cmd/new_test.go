package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan-al/gsqr/state"
)

func TestParseNodeSpec(t *testing.T) {
	node, err := parseNodeSpec("3@10.0.0.3:6543")
	require.NoError(t, err)
	assert.Equal(t, state.NodeId(3), node.Id)
	assert.Equal(t, "10.0.0.3:6543", node.Bind.String())

	_, err = parseNodeSpec("10.0.0.3:6543")
	assert.Error(t, err)
	_, err = parseNodeSpec("x@10.0.0.3:6543")
	assert.Error(t, err)
	_, err = parseNodeSpec("3@nonsense")
	assert.Error(t, err)
}
