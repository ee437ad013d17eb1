package directory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `area,pi,url
Biology,Zed,https://example.org/zed
Biology,Alice,
Chemistry,Bob,https://example.org/bob
Biology,Alice,https://example.org/alice
Chemistry,,https://example.org/nobody
`

func TestLoad_SortedPIsWithURLs(t *testing.T) {
	d, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []PI{
		{Name: "Alice", URL: "https://example.org/alice"},
		{Name: "Alice", URL: "https://example.org/alice"},
		{Name: "Zed", URL: "https://example.org/zed"},
	}, d.PIs("Biology"))
	assert.Equal(t, []PI{{Name: "Bob", URL: "https://example.org/bob"}}, d.PIs("Chemistry"))
	assert.Nil(t, d.PIs("Astronomy"))
	assert.Equal(t, []string{"Biology", "Chemistry"}, d.Areas())
	assert.Equal(t, 2, d.Len())
}

func TestLoad_URLColumnOptional(t *testing.T) {
	d, err := Load(strings.NewReader("\ufeffarea,pi\nBiology,Alice\n"))
	require.NoError(t, err)
	assert.Equal(t, []PI{{Name: "Alice"}}, d.PIs("Biology"))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("area,url\nBiology,x\n"))
	assert.ErrorContains(t, err, `"pi"`)

	_, err = Load(strings.NewReader("pi\nAlice\n"))
	assert.ErrorContains(t, err, `"area"`)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area2pi2url.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, d.PIs("Biology"), 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestEmpty(t *testing.T) {
	d := Empty()
	assert.Nil(t, d.PIs("Biology"))
	assert.Empty(t, d.Areas())
}
