package demo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maishanyun/pantry/internal/forecast"
	"github.com/maishanyun/pantry/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

var seedNow = time.Date(2026, 6, 1, 15, 30, 0, 0, time.UTC)

func TestSeed(t *testing.T) {
	st := openTestStore(t)
	cfg := Config{Seed: 42, Days: 30, Now: seedNow}

	sum, err := Seed(context.Background(), st, cfg)
	require.NoError(t, err)

	assert.Equal(t, 18, sum.Ingredients)
	assert.Equal(t, 34, sum.RecipeLines)
	assert.Equal(t, 30*7, sum.Usage, "seven menu items per day")
	assert.Equal(t, 30*7, sum.Sales)
	assert.Equal(t, 50, sum.Purchases)
	assert.Equal(t, 20, sum.Shipments)

	ingredients, err := st.Ingredients(context.Background())
	require.NoError(t, err)
	assert.Len(t, ingredients, 18)

	totals, err := st.DailyUsageTotals(context.Background())
	require.NoError(t, err)
	assert.Len(t, totals, 30, "one aggregate per generated day")
	for _, d := range totals {
		assert.True(t, d.Date.Before(seedNow), "history ends before now")
		assert.GreaterOrEqual(t, d.Quantity, 0.0)
	}

	shipments, err := st.Shipments(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, shipments, 20)
	for _, sh := range shipments {
		switch sh.Status {
		case store.ShipmentDelivered:
			require.NotNil(t, sh.LeadTimeDays)
			assert.NotNil(t, sh.ArrivedDate)
		case store.ShipmentInTransit:
			assert.Nil(t, sh.LeadTimeDays)
		}
	}
}

func TestSeed_Deterministic(t *testing.T) {
	cfg := Config{Seed: 42, Days: 20, Now: seedNow}

	stA := openTestStore(t)
	_, err := Seed(context.Background(), stA, cfg)
	require.NoError(t, err)
	totalsA, err := stA.DailyUsageTotals(context.Background())
	require.NoError(t, err)

	stB := openTestStore(t)
	_, err = Seed(context.Background(), stB, cfg)
	require.NoError(t, err)
	totalsB, err := stB.DailyUsageTotals(context.Background())
	require.NoError(t, err)

	assert.Equal(t, totalsA, totalsB, "same seed and clock, same history")
}

func TestSeed_DifferentSeedsDiffer(t *testing.T) {
	stA := openTestStore(t)
	_, err := Seed(context.Background(), stA, Config{Seed: 1, Days: 20, Now: seedNow})
	require.NoError(t, err)
	totalsA, err := stA.DailyUsageTotals(context.Background())
	require.NoError(t, err)

	stB := openTestStore(t)
	_, err = Seed(context.Background(), stB, Config{Seed: 2, Days: 20, Now: seedNow})
	require.NoError(t, err)
	totalsB, err := stB.DailyUsageTotals(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, totalsA, totalsB)
}

func TestSeed_InvalidDays(t *testing.T) {
	st := openTestStore(t)
	_, err := Seed(context.Background(), st, Config{Seed: 42, Days: 0, Now: seedNow})
	assert.Error(t, err)
}

func TestSeededHistoryTrains(t *testing.T) {
	st := openTestStore(t)
	_, err := Seed(context.Background(), st, Config{Seed: 42, Days: 60, Now: seedNow})
	require.NoError(t, err)

	history, err := st.DailyUsageTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 60)

	hp := forecast.Hyperparameters{InputSize: 10, HiddenSize: 8, NumLayers: 1, OutLen: 5}
	cfg := forecast.TrainingConfig{
		Epochs:         10,
		LearningRate:   0.01,
		MinHistoryDays: 30,
		WindowSize:     10,
		ClipNorm:       5,
		Seed:           1,
	}
	pipeline := forecast.NewTrainingPipeline(hp, cfg, filepath.Join(t.TempDir(), "model.json"), nil)

	report, err := pipeline.Train(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, forecast.TrainingSuccess, report.Status)
	assert.Greater(t, report.Samples, 0)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(seedNow)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 90, cfg.Days)
	assert.Equal(t, seedNow, cfg.Now)
}
