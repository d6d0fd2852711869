package wiki

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDump = `<mediawiki>
  <page>
    <title>Vault 101</title>
    <ns>0</ns>
    <revision>
      <timestamp>2021-01-02T00:00:00Z</timestamp>
      <text>Vault 101 is a [[Vault-Tec]] vault built in 2063.</text>
    </revision>
  </page>
  <page>
    <title>Talk:Vault 101</title>
    <ns>1</ns>
    <revision>
      <timestamp>2021-01-02T00:00:00Z</timestamp>
      <text>discussion</text>
    </revision>
  </page>
  <page>
    <title>Old Name</title>
    <ns>0</ns>
    <redirect title="New Name" />
    <revision>
      <timestamp>2021-01-02T00:00:00Z</timestamp>
      <text>#REDIRECT [[New Name]]</text>
    </revision>
  </page>
  <page>
    <ns>0</ns>
    <revision>
      <timestamp>2021-01-02T00:00:00Z</timestamp>
      <text>a page missing a title</text>
    </revision>
  </page>
</mediawiki>`

func writeDump(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecoderYieldsAllPagesInOrder(t *testing.T) {
	path := writeDump(t, sampleDump)
	dec, err := Open(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	var pages []Page
	for {
		p, ok, err := dec.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pages = append(pages, p)
	}

	require.Len(t, pages, 3) // the untitled page is skipped
	require.Equal(t, "Vault 101", pages[0].Title)
	require.Equal(t, 0, pages[0].Namespace)
	require.False(t, pages[0].IsRedirect())

	require.Equal(t, "Talk:Vault 101", pages[1].Title)
	require.False(t, pages[1].IsArticle())

	require.Equal(t, "Old Name", pages[2].Title)
	require.True(t, pages[2].IsRedirect())
	require.Equal(t, "New Name", pages[2].RedirectTarget)

	require.Equal(t, 1, dec.Skipped())
}

func TestDecoderSkipNonArticle(t *testing.T) {
	path := writeDump(t, sampleDump)
	dec, err := Open(path, Options{SkipNonArticle: true})
	require.NoError(t, err)
	defer dec.Close()

	var pages []Page
	for {
		p, ok, err := dec.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pages = append(pages, p)
	}

	for _, p := range pages {
		require.True(t, p.IsArticle())
	}
	require.Len(t, pages, 2)
}

func TestDecoderTruncatedInputTerminatesGracefully(t *testing.T) {
	truncated := `<mediawiki><page><title>Partial</title><ns>0</ns><revision><timestamp>2021-01-02T00:00:00Z</timestamp><text>cut off`
	path := writeDump(t, truncated)
	dec, err := Open(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	_, ok, err := dec.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecoderEmptyDump(t *testing.T) {
	path := writeDump(t, `<mediawiki></mediawiki>`)
	dec, err := Open(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	_, ok, err := dec.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
