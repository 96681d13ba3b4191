package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldOutputJSON(t *testing.T) {
	root := &cobra.Command{Use: "vigil"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "list"}
	root.AddCommand(child)

	assert.False(t, ShouldOutputJSON(child))
	assert.False(t, ShouldOutputJSON(nil))

	require.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(child))

	local := &cobra.Command{Use: "version"}
	local.Flags().Bool("json", false, "")
	require.NoError(t, local.Flags().Set("json", "false"))
	assert.False(t, ShouldOutputJSON(local))
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"passed": 2}))
	assert.Equal(t, "{\n  \"passed\": 2\n}\n", buf.String())

	t.Setenv(CompactEnv, "1")
	buf.Reset()
	require.NoError(t, OutputJSON(&buf, map[string]int{"passed": 2}))
	assert.Equal(t, "{\"passed\":2}\n", buf.String())
}
