package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/errors"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TARIFF_SOURCE_KIND", "embedded")
	t.Setenv("TARIFF_CACHE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.json")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestComputeCommandJSON(t *testing.T) {
	out, err := runCLI(t, "compute",
		"--state", "tamil nadu", "--units", "150",
		"--season", "summer", "--time-of-day", "peak", "--format", "json")
	require.NoError(t, err)

	var b map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &b), out)
	assert.Equal(t, "Tamil Nadu", b["state"])
	assert.Equal(t, "117.5", b["base_amount"])
	assert.Equal(t, "148.05", b["total_amount"])
}

func TestComputeCommandText(t *testing.T) {
	out, err := runCLI(t, "compute",
		"--state", "Kerala", "--units", "100",
		"--season", "", "--time-of-day", "", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Kerala / domestic: 100 units")
	assert.Contains(t, out, "Total:         605.00")
}

func TestComputeCommandErrors(t *testing.T) {
	_, err := runCLI(t, "compute", "--state", "Atlantis", "--units", "10", "--format", "text")
	assert.True(t, errors.IsType(err, errors.TypeNotFound), "got %v", err)

	_, err = runCLI(t, "compute", "--state", "Kerala", "--units", "ten", "--format", "text")
	assert.True(t, errors.IsType(err, errors.TypeInvalidArgument), "got %v", err)
}

func TestJurisdictionsCommand(t *testing.T) {
	out, err := runCLI(t, "jurisdictions")
	require.NoError(t, err)
	assert.Contains(t, out, "Tamil Nadu: commercial, domestic")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tariff version "+Version+"\n", out)
}

func TestPrintTablePrefersSlabsOverFlatRate(t *testing.T) {
	bound := decimal.NewFromInt(100)
	flat := decimal.RequireFromString("6.05")
	table := &tariff.Table{
		Jurisdiction: "Delhi",
		Category:     "domestic",
		Slabs: []tariff.SlabLine{
			{UpTo: &bound, Rate: decimal.RequireFromString("3")},
			{Rate: decimal.RequireFromString("4.5")},
		},
		FlatRate:          &flat,
		SeasonMultipliers: map[string]decimal.Decimal{"winter": decimal.RequireFromString("0.9"), "summer": decimal.RequireFromString("1.1")},
	}

	var out bytes.Buffer
	printTable(&out, table)

	assert.Contains(t, out.String(), "UP TO")
	assert.Contains(t, out.String(), "above  4.5")
	assert.NotContains(t, out.String(), "Flat rate")
	assert.Contains(t, out.String(), "Season: summer=1.1 winter=0.9")

	out.Reset()
	printTable(&out, &tariff.Table{Jurisdiction: "Kerala", Category: "domestic", FlatRate: &flat})
	assert.Contains(t, out.String(), "Flat rate:     6.05 per unit")
}
