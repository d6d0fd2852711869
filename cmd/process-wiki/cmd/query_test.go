package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikivault/process-wiki/internal/query"
)

func TestPrintResultsEncodesIndentedJSON(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	results := []query.Result{
		{ID: "vault-101-0", Text: "Vault 101 is a vault.", Distance: 0.12, Metadata: map[string]any{"region_type": "East Coast"}},
	}
	require.NoError(t, printResults(cmd, results))

	var decoded []query.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "vault-101-0", decoded[0].ID)
	assert.Equal(t, float32(0.12), decoded[0].Distance)
}

func TestNewQueryCmdRequiresPersonaFlag(t *testing.T) {
	cmd := newQueryCmd()
	cmd.SetArgs([]string{"some text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persona")
}
