package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkoehler/gearharvest/models"
)

func sampleInputs() ([]models.Category, []models.Result) {
	categories := []models.Category{
		{Name: "Ropes", URL: "http://vendor.test/cat/ropes"},
		{Name: "Helmets", URL: "http://vendor.test/cat/helmets"},
		{Name: "Empty", URL: "http://vendor.test/cat/empty"},
	}
	results := []models.Result{
		models.NewRecord(
			models.ProductReference{Category: "Ropes", URL: "http://vendor.test/p/rope"},
			models.Fields{Title: "Rope 9.8"},
		),
		models.NewErrorRecord(
			models.ProductReference{Category: "Ropes", URL: "http://vendor.test/p/gone"},
			models.ErrorHTTPStatus, "HTTP status 404",
		),
		models.NewRecord(
			models.ProductReference{Category: "Helmets", URL: "http://vendor.test/p/helmet"},
			models.Fields{Title: "Helmet"},
		),
	}
	return categories, results
}

func TestAggregateGroupsByCategory(t *testing.T) {
	categories, results := sampleInputs()
	snap := Aggregate(categories, results)

	require.Len(t, snap, 3)
	require.Len(t, snap["Ropes"], 2)
	require.Len(t, snap["Helmets"], 1)

	assert.Equal(t, "http://vendor.test/p/rope", snap["Ropes"][0].URL)
	assert.Equal(t, "Rope 9.8", snap["Ropes"][0].Title)
	assert.Nil(t, snap["Ropes"][0].Error)

	require.NotNil(t, snap["Ropes"][1].Error)
	assert.Equal(t, models.ErrorHTTPStatus, snap["Ropes"][1].Error.Kind)
}

func TestAggregateKeepsEmptyCategories(t *testing.T) {
	categories, results := sampleInputs()
	snap := Aggregate(categories, results)

	entries, ok := snap["Empty"]
	require.True(t, ok, "empty category must still be present")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestAggregateFallsBackToUncategorized(t *testing.T) {
	results := []models.Result{
		models.NewRecord(models.ProductReference{URL: "http://vendor.test/p/stray"}, models.Fields{}),
	}
	snap := Aggregate(nil, results)

	require.Len(t, snap[Uncategorized], 1)
	assert.Equal(t, "http://vendor.test/p/stray", snap[Uncategorized][0].URL)
}

func TestMarshalIsDeterministic(t *testing.T) {
	categories, results := sampleInputs()

	first, err := Marshal(Aggregate(categories, results))
	require.NoError(t, err)
	second, err := Marshal(Aggregate(categories, results))
	require.NoError(t, err)

	assert.Equal(t, first, second, "same inputs must render byte-identical snapshots")
}

func TestMarshalStripsCategoryFromEntries(t *testing.T) {
	categories, results := sampleInputs()
	data, err := Marshal(Aggregate(categories, results))
	require.NoError(t, err)

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, entries := range decoded {
		for _, entry := range entries {
			assert.Contains(t, entry, "product_url")
			assert.NotContains(t, entry, "category")
		}
	}
}

func TestMarshalLeavesHTMLUnescaped(t *testing.T) {
	snap := Snapshot{
		"Ropes": []Entry{{URL: "http://vendor.test/p/rope?color=red&size=m"}},
	}
	data, err := Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), "color=red&size=m")
	assert.NotContains(t, string(data), `\u0026`)
}

func TestWritePublishesArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "catalog.json")

	categories, results := sampleInputs()
	snap := Aggregate(categories, results)
	require.NoError(t, Write(path, snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	expected, err := Marshal(snap)
	require.NoError(t, err)
	assert.Equal(t, expected, data)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	snap := Snapshot{"Ropes": []Entry{}}
	require.NoError(t, Write(path, snap))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".catalog-"),
			"temp file %s left behind", entry.Name())
	}
}

func TestWriteFailureKeepsPreviousArtifact(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	require.NoError(t, Write(path, Snapshot{"Old": []Entry{}}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	require.Error(t, Write(path, Snapshot{"New": []Entry{}}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed write must not touch the published artifact")
}

func TestWriteRenameFailureLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	require.Error(t, Write(path, Snapshot{"Ropes": []Entry{}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".catalog-"),
			"temp file %s left behind", entry.Name())
	}
}

func TestWriteReplacesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	require.NoError(t, Write(path, Snapshot{"Old": []Entry{}}))
	require.NoError(t, Write(path, Snapshot{"New": []Entry{}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "New")
	assert.NotContains(t, string(data), "Old")
}
