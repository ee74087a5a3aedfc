package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presetsConfig = `presets: {
	rare: "qual < 20"
	brca: "gene = 'BRCA1'"
}
`

func TestPresetsText(t *testing.T) {
	cfgPath := writeFile(t, "vql.cue", presetsConfig)

	out, err := execute(NewPresetsCommand(&RootOptions{Format: "text", Config: cfgPath}))
	require.NoError(t, err)
	assert.Equal(t, "brca: (gene = 'BRCA1')\nrare: (qual < 20)\n", out)
}

func TestPresetsJSON(t *testing.T) {
	cfgPath := writeFile(t, "vql.cue", presetsConfig)

	out, err := execute(NewPresetsCommand(&RootOptions{Format: "json", Config: cfgPath}))
	require.NoError(t, err)

	var resp struct {
		Status string                    `json:"status"`
		Data   map[string]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Contains(t, resp.Data, "rare")
	require.Contains(t, resp.Data, "brca")

	children, ok := resp.Data["rare"]["AND"].([]any)
	require.True(t, ok, "rare: %v", resp.Data["rare"])
	require.Len(t, children, 1)
	assert.Equal(t, map[string]any{"field": "qual", "operator": "<", "value": float64(20)}, children[0])
}

func TestPresetsNone(t *testing.T) {
	out, err := execute(NewPresetsCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)
	assert.Equal(t, "No presets defined.\n", out)
}

func TestPresetsInvalidConfig(t *testing.T) {
	cfgPath := writeFile(t, "vql.cue", `presets: bad: "qual >"`+"\n")

	_, err := execute(NewPresetsCommand(&RootOptions{Format: "text", Config: cfgPath}))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "presets.bad")
}
