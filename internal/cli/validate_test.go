package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidScript(t *testing.T) {
	script := writeFile(t, "ok.vql", "# gene filter\nCOUNT FROM variants\nSHOW selections\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), script)
	require.NoError(t, err)
	assert.Equal(t, "✓ "+script+" (2 statements)\n", out)
}

func TestValidateInvalidScript(t *testing.T) {
	script := writeFile(t, "bad.vql", "COUNT FROM A\nSELECT chr FROM")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), script)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "✗ "+script)
	assert.Contains(t, out, script+":2:")
}

func TestValidateJSON(t *testing.T) {
	good := writeFile(t, "good.vql", "SHOW sets")
	bad := writeFile(t, "bad.vql", "SHOW genes")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), good, bad)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)

	assert.True(t, resp.Data.Files[0].Valid)
	assert.Equal(t, 1, resp.Data.Files[0].Statements)

	assert.False(t, resp.Data.Files[1].Valid)
	require.Len(t, resp.Data.Files[1].Errors, 1)
	assert.Equal(t, 1, resp.Data.Files[1].Errors[0].Line)
	assert.NotEmpty(t, resp.Data.Files[1].Errors[0].Message)
}

func TestValidateMissingFile(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/script.vql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestValidateRequiresArgs(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}

func TestValidateScript(t *testing.T) {
	fv := validateScript("x.vql", "")
	assert.True(t, fv.Valid)
	assert.Equal(t, 0, fv.Statements)

	fv = validateScript("x.vql", "SELECT chr FROM variants LIMIT -1")
	assert.False(t, fv.Valid)
	require.Len(t, fv.Errors, 1)
	assert.Equal(t, 1, fv.Errors[0].Line)
}
