package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTemplateWritesContents(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	path := filepath.Join(t.TempDir(), "process-wiki.yaml")
	require.NoError(t, writeTemplate(cmd, path, "version: 1\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
	assert.Contains(t, out.String(), "wrote")
}

func TestWriteTemplateRefusesToOverwrite(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	path := filepath.Join(t.TempDir(), "process-wiki.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	err := writeTemplate(cmd, path, "version: 1\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "existing", string(data))
}

func TestConfigInitAndPersonaInitWriteDistinctTemplates(t *testing.T) {
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "process-wiki.yaml")
	cfgCmd := newConfigInitCmd()
	cfgCmd.SetOut(&bytes.Buffer{})
	cfgCmd.SetArgs([]string{"--output", cfgPath})
	require.NoError(t, cfgCmd.Execute())

	personaPath := filepath.Join(dir, "persona.yaml")
	personaCmd := newPersonaInitCmd()
	personaCmd.SetOut(&bytes.Buffer{})
	personaCmd.SetArgs([]string{"--output", personaPath})
	require.NoError(t, personaCmd.Execute())

	cfgData, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	personaData, err := os.ReadFile(personaPath)
	require.NoError(t, err)

	assert.Contains(t, string(cfgData), "chunking:")
	assert.Contains(t, string(personaData), "year_max")
	assert.NotEqual(t, string(cfgData), string(personaData))
}
