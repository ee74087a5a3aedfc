package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	out, err := execute(NewParseCommand(&RootOptions{Format: "text"}),
		"count from A where gene = 'BRCA1'\nshow samples\ndrop sets genes")
	require.NoError(t, err)
	assert.Equal(t,
		"COUNT FROM A WHERE (gene = 'BRCA1')\nSHOW samples\nDROP sets genes\n",
		out)
}

func TestParseJSON(t *testing.T) {
	out, err := execute(NewParseCommand(&RootOptions{Format: "json"}), "CREATE both = A & B")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "set_cmd", resp.Data[0]["cmd"])
	assert.Equal(t, "both", resp.Data[0]["target"])
	assert.Equal(t, "&", resp.Data[0]["operator"])
}

func TestParseSyntaxError(t *testing.T) {
	out, err := execute(NewParseCommand(&RootOptions{Format: "json"}), "SELECT chr\nFROM")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "parse failed")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, details["line"])
}

func TestParseFile(t *testing.T) {
	script := writeFile(t, "q.vql", "SHOW fields\n")

	out, err := execute(NewParseCommand(&RootOptions{Format: "text"}), "-f", script)
	require.NoError(t, err)
	assert.Equal(t, "SHOW fields\n", out)
}

func TestParseMissingFile(t *testing.T) {
	_, err := execute(NewParseCommand(&RootOptions{Format: "text"}), "-f", "/nonexistent/q.vql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
