package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModels(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.cue"), []byte(content), 0o644))
	return dir
}

func TestValidateCommand_ValidModels(t *testing.T) {
	dir := writeModels(t, `
model: User: {
	group: "accounts"
	attr: { name: "string", age: "int" }
}
`)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "model User")
	assert.Contains(t, out.String(), "age, name")
}

func TestValidateCommand_InvalidModels(t *testing.T) {
	dir := writeModels(t, `
model: Broken: {
	attr: { payload: "blob" }
}
`)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "error")
	assert.Contains(t, out.String(), "blob")
}

func TestValidateCommand_MissingDirectory(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate", filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_JSONOutput(t *testing.T) {
	dir := writeModels(t, `
model: Team: {
	attr: { name: "string" }
}
`)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", dir, "--format", "json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"status":"ok"`)
	assert.Contains(t, out.String(), `"valid":true`)
	assert.Contains(t, out.String(), "Team (name)")
}
