package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areamap/backend/internal/storage/models"
	"github.com/areamap/backend/internal/storage/sqlite"
	"github.com/areamap/backend/internal/store"
	"github.com/areamap/backend/pkg/logger"
)

const scoresCSV = `campus,area_shortname,area,Biology,Chemistry
UB,Bio,Biology,5,5
UA,Chem,Chemistry,0,10
UA,Bio,Biology,10,0
`

const canonicalCSV = `campus,area_shortname,area,Biology,Chemistry
UA,Bio,Biology,10,0
UA,Chem,Chemistry,0,10
UB,Bio,Biology,5,5
`

const pisCSV = `area,pi,url
Biology,Zed,https://example.org/zed
Biology,Alice,https://example.org/alice
`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Cleanup(func() { logger.Set(nil) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scores.csv"), []byte(scoresCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pis.csv"), []byte(pisCSV), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--no-color"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEmbed_CSVDeterministic(t *testing.T) {
	setup(t)

	first, err := run(t, "embed", "--scores", "scores.csv", "--seed", "42", "--format", "csv")
	require.NoError(t, err)
	second, err := run(t, "embed", "--scores", "scores.csv", "--seed", "42.0", "-f", "csv")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	lines := strings.Split(strings.TrimSpace(first), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "x,y,campus,area_shortname,area,category", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",UA,Bio,Biology,Biology"))
}

func TestEmbed_JSON(t *testing.T) {
	setup(t)
	out, err := run(t, "embed", "--scores", "scores.csv", "--seed", "7", "--format", "json")
	require.NoError(t, err)

	var snap store.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, int64(7), snap.Seed)
	assert.Len(t, snap.Points, 3)
}

func TestEmbed_Table(t *testing.T) {
	setup(t)
	out, err := run(t, "embed", "--scores", "scores.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Chemistry")
	assert.Contains(t, out, "seed 2971")
}

func TestEmbed_Errors(t *testing.T) {
	setup(t)

	_, err := run(t, "embed", "--scores", "scores.csv", "--seed", "abc")
	var ise *store.InvalidSeedError
	assert.True(t, errors.As(err, &ise))

	_, err = run(t, "embed", "--scores", "scores.csv", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = run(t, "embed", "--scores", "missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveSeed(t *testing.T) {
	seed, err := resolveSeed("", 2971)
	require.NoError(t, err)
	assert.Equal(t, int64(2971), seed)

	seed, err = resolveSeed("Random", 2971)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), seed)

	seed, err = resolveSeed("12", 2971)
	require.NoError(t, err)
	assert.Equal(t, int64(12), seed)
}

func TestExport(t *testing.T) {
	dir := setup(t)

	out, err := run(t, "export", "--scores", "scores.csv")
	require.NoError(t, err)
	assert.Equal(t, canonicalCSV, out)

	target := filepath.Join(dir, "clean.csv")
	_, err = run(t, "export", "--scores", "scores.csv", "--out", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, canonicalCSV, string(data))
}

func TestLookup(t *testing.T) {
	setup(t)

	out, err := run(t, "lookup", "--pis", "pis.csv", "--scores", "scores.csv", "Biology")
	require.NoError(t, err)
	assert.Contains(t, out, "Biology [Biology]")
	assert.Less(t, strings.Index(out, "Alice"), strings.Index(out, "Zed"))
	assert.Contains(t, out, "https://example.org/alice")

	// default scores path does not exist here; category is omitted
	out, err = run(t, "lookup", "--pis", "pis.csv", "Chemistry")
	require.NoError(t, err)
	assert.Contains(t, out, "no PIs listed")

	_, err = run(t, "lookup", "--pis", "pis.csv")
	assert.Error(t, err)
}

func TestLookup_Campus(t *testing.T) {
	dir := setup(t)
	split := "campus,area_shortname,area,Biology,Chemistry\nUA,Bio,Biology,10,0\nUB,Bio,Biology,1,9\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "split.csv"), []byte(split), 0o644))

	out, err := run(t, "lookup", "--pis", "pis.csv", "--scores", "split.csv", "--campus", "UB", "Biology")
	require.NoError(t, err)
	assert.Contains(t, out, "Biology [Chemistry]")

	out, err = run(t, "lookup", "--pis", "pis.csv", "--scores", "split.csv", "Biology")
	require.NoError(t, err)
	assert.Contains(t, out, "Biology [Biology]")
}

func TestRuns(t *testing.T) {
	dir := setup(t)
	dbPath := filepath.Join(dir, "runs.db")

	client, err := sqlite.NewClient(dbPath)
	require.NoError(t, err)
	require.NoError(t, client.InitSchema())
	require.NoError(t, client.RecordRun(context.Background(), &models.EmbeddingRun{
		ID:        "run-1",
		Trigger:   "table",
		Seed:      42,
		RowCount:  3,
		Stress:    0.125,
		CreatedAt: time.Now(),
		TableCSV:  canonicalCSV,
	}))
	require.NoError(t, client.Close())

	out, err := run(t, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")

	out, err = run(t, "runs", "--db", dbPath, "--id", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "seed=42")
	assert.Contains(t, out, canonicalCSV)
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
