package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI with the given args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "inventory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_UnknownCommand(t *testing.T) {
	_, err := runCommand(t, "replenish")
	assert.Error(t, err)
}

func TestSeedThenInventory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pantry.db")

	out, err := runCommand(t, "seed", "--db", db, "--days", "35", "--format", "json")
	require.NoError(t, err)

	var seedResp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &seedResp))
	assert.Equal(t, "ok", seedResp.Status)

	out, err = runCommand(t, "inventory", "--db", db, "--format", "json")
	require.NoError(t, err)

	var invResp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &invResp))
	require.Equal(t, "ok", invResp.Status)

	data, ok := invResp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "store", data["source"], "a seeded database is a live source")

	ingredients, ok := data["ingredients"].([]any)
	require.True(t, ok)
	assert.Len(t, ingredients, 18)
}

func TestSeedThenForecast(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pantry.db")

	_, err := runCommand(t, "seed", "--db", db, "--days", "35")
	require.NoError(t, err)

	// No trained model yet, so the forecast is synthetic and tagged.
	out, err := runCommand(t, "forecast", "egg", "--db", db, "--horizon", "14", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "egg", data["ingredient_id"])
	assert.Equal(t, "synthetic", data["source"])
	assert.Equal(t, "no_model", data["reason"])

	forecast, ok := data["forecast"].([]any)
	require.True(t, ok)
	assert.Len(t, forecast, 14)
}

func TestSeedThenShipments(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pantry.db")

	_, err := runCommand(t, "seed", "--db", db, "--days", "35")
	require.NoError(t, err)

	out, err := runCommand(t, "shipments", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "store", data["source"])

	stats, ok := data["statistics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 20.0, stats["total_shipments"])
}

func TestIngestCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "pantry.db")
	csvPath := filepath.Join(dir, "usage.csv")
	csv := "date,menu_item_id,menu_item_name,quantity_sold\n" +
		"2026-05-20,beef_ramen,Beef Ramen,12\n" +
		"2026-05-21,beef_ramen,Beef Ramen,9\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	out, err := runCommand(t, "ingest", "usage", csvPath, "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, data["rows"])
	assert.Equal(t, "usage.csv", data["filename"])
	assert.NotEmpty(t, data["file_id"])
}

func TestIngestCommand_UnknownKind(t *testing.T) {
	_, err := runCommand(t, "ingest", "recipes", "whatever.csv")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrainCommand_InsufficientHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "pantry.db")
	model := filepath.Join(dir, "model.json")
	t.Setenv("PANTRY_MODEL_PATH", model)

	// 35 days clears the history minimum but cannot fill a single
	// 10-day window with a 30-day target, so training reports
	// insufficient data and exits zero.
	_, err := runCommand(t, "seed", "--db", db, "--days", "35")
	require.NoError(t, err)

	out, err := runCommand(t, "train", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "insufficient_data", data["status"])

	_, statErr := os.Stat(model)
	assert.True(t, os.IsNotExist(statErr))
}

func TestForecastArgValidation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pantry.db")

	// Neither an ingredient nor --all.
	_, err := runCommand(t, "forecast", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	// Both at once.
	_, err = runCommand(t, "forecast", "egg", "--all", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
