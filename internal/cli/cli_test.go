package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelpadega/backend/internal/domain"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func seededDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	code, _, stderr := run(t, "seed", "--data-dir", dir)
	require.Equal(t, ExitSuccess, code, stderr)
	return dir
}

func TestSeed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	code, out, _ := run(t, "seed", "--data-dir", dir)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "banned_products.json")
	assert.Contains(t, out, "product_recalls.json")
	assert.FileExists(t, filepath.Join(dir, "banned_products.json"))

	code, out, _ = run(t, "seed", "--data-dir", dir)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "already present")
}

func TestCheckIngredients(t *testing.T) {
	dir := seededDir(t)

	t.Run("banned ingredient sets the concerns exit code", func(t *testing.T) {
		code, out, _ := run(t, "check", "ingredients", "--data-dir", dir, "wheat flour, water, potassium bromate")
		assert.Equal(t, ExitConcerns, code)
		assert.Contains(t, out, "Potassium Bromate: banned in")
		assert.Contains(t, out, "alternatives: Ascorbic acid")
	})

	t.Run("clean text", func(t *testing.T) {
		code, out, _ := run(t, "check", "ingredients", "--data-dir", dir, "rice", "water", "salt")
		assert.Equal(t, ExitSuccess, code)
		assert.Contains(t, out, "No banned ingredients found.")
	})

	t.Run("json output", func(t *testing.T) {
		code, out, _ := run(t, "check", "ingredients", "--json", "--data-dir", dir, "flour, E924")
		assert.Equal(t, ExitConcerns, code)

		var matches []domain.BannedIngredient
		require.NoError(t, json.Unmarshal([]byte(out), &matches))
		require.Len(t, matches, 1)
		assert.Equal(t, "Potassium Bromate", matches[0].Name)
	})
}

func TestCheckCompliance(t *testing.T) {
	dir := seededDir(t)

	code, out, _ := run(t, "check", "compliance", "--data-dir", dir, "--region", "India", "flour, potassium bromate")
	assert.Equal(t, ExitConcerns, code)
	assert.Contains(t, out, "Not compliant for India:")
	assert.Contains(t, out, "Potassium Bromate is banned in India.")

	code, out, _ = run(t, "check", "compliance", "--json", "--data-dir", dir, "--region", "India", "rice, water")
	assert.Equal(t, ExitSuccess, code)
	var result domain.ComplianceResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Compliant)
	assert.Equal(t, "India", result.Region)
}

func TestRecalls(t *testing.T) {
	dir := seededDir(t)

	code, out, _ := run(t, "recalls", "--data-dir", dir, "Peanut", "Butter")
	assert.Equal(t, ExitConcerns, code)
	assert.Contains(t, out, "2024-02-15  XYZ Organic Peanut Butter: Potential Salmonella contamination")
	assert.Contains(t, out, "batches: PB202401")

	code, out, _ = run(t, "recalls", "--data-dir", dir, "Sparkling Water")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No recalls found.")
}

func TestCacheClear(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LABELPADEGA_CACHE_TYPE", "file")
	t.Setenv("LABELPADEGA_CACHE_DIR", dir)

	code, out, stderr := run(t, "cache", "clear")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "Cache cleared (file).")
}

func TestUsageErrors(t *testing.T) {
	testCases := [][]string{
		{"check", "ingredients"},
		{"recalls"},
		{"seed", "extra"},
		{"unknown"},
	}
	for _, args := range testCases {
		code, _, _ := run(t, args...)
		assert.Equal(t, ExitUsageError, code, args)
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "labelctl version "+version+"\n", out)
}

func TestMissingDataDirFallsBackToEmptyDatasets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	code, out, _ := run(t, "check", "ingredients", "--data-dir", dir, "potassium bromate")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No banned ingredients found.")
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
