package forecast

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maishanyun/pantry/internal/store"
)

// fakeHistory implements HistoryReader with fixed data or errors.
type fakeHistory struct {
	usage       map[string][]store.DailyUsage
	usageErr    error
	ingredients []store.Ingredient
	catalogErr  error
}

func (f *fakeHistory) IngredientDailyUsage(_ context.Context, id string) ([]store.DailyUsage, error) {
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	return f.usage[id], nil
}

func (f *fakeHistory) Ingredients(context.Context) ([]store.Ingredient, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.ingredients, nil
}

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// tinyOrchestratorConfig pins the clock and shrinks the model so tests
// run against real artifacts in milliseconds.
func tinyOrchestratorConfig(artifactPath string) OrchestratorConfig {
	return OrchestratorConfig{
		ArtifactPath:       artifactPath,
		Hyper:              tinyHyper(),
		WindowSize:         6,
		ReorderThreshold:   200,
		DefaultReorderDays: 7,
		SyntheticSeed:      42,
		Pad:                PadRepeatLast,
		Now:                func() time.Time { return testNow },
	}
}

// trainTinyArtifact fits a small model and returns its path.
func trainTinyArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	p := NewTrainingPipeline(tinyHyper(), tinyTrainingConfig(), path, nil)
	report, err := p.Train(context.Background(), wavyHistory(40))
	require.NoError(t, err)
	require.Equal(t, TrainingSuccess, report.Status)
	return path
}

func TestPredict_NoModelFallsBackSynthetic(t *testing.T) {
	cfg := tinyOrchestratorConfig(filepath.Join(t.TempDir(), "missing.json"))
	o := NewOrchestrator(cfg, &fakeHistory{}, nil)

	res, err := o.Predict(context.Background(), "egg", 14)
	require.NoError(t, err)

	assert.Equal(t, SourceSynthetic, res.Source)
	assert.Equal(t, ReasonNoModel, res.Reason)
	assert.Equal(t, "egg", res.IngredientID)
	assert.Equal(t, 14, res.Horizon)
	require.Len(t, res.Forecast, 14)

	var first7 float64
	for i, pt := range res.Forecast {
		assert.GreaterOrEqual(t, pt.PredictedDemand, 0.0)
		assert.Equal(t, testNow.AddDate(0, 0, i), pt.Date)
		if i < 7 {
			first7 += pt.PredictedDemand
		}
	}
	assert.Equal(t, testNow.AddDate(0, 0, 7), res.ReorderDate)
	assert.InDelta(t, first7, res.ReorderQuantity, 1e-9)

	// Same inputs, same numbers, every time.
	res2, err := o.Predict(context.Background(), "egg", 14)
	require.NoError(t, err)
	assert.Equal(t, res, res2)

	// Different ingredients get different synthetic series.
	other, err := o.Predict(context.Background(), "rice", 14)
	require.NoError(t, err)
	assert.NotEqual(t, res.Forecast, other.Forecast)
}

func TestPredict_EmptyHistory(t *testing.T) {
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	o := NewOrchestrator(cfg, &fakeHistory{}, nil)

	res, err := o.Predict(context.Background(), "egg", 10)
	require.NoError(t, err)
	assert.Equal(t, SourceSynthetic, res.Source)
	assert.Equal(t, ReasonNoHistory, res.Reason)
	assert.Len(t, res.Forecast, 10)
}

func TestPredict_StoreErrorFallsBack(t *testing.T) {
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	o := NewOrchestrator(cfg, &fakeHistory{
		usageErr: &store.DataStoreError{Op: "query", Err: errors.New("disk gone")},
	}, nil)

	res, err := o.Predict(context.Background(), "egg", 10)
	require.NoError(t, err)
	assert.Equal(t, SourceSynthetic, res.Source)
	assert.Equal(t, ReasonStoreError, res.Reason)
}

func TestPredict_UnexpectedErrorPropagates(t *testing.T) {
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	boom := errors.New("boom")
	o := NewOrchestrator(cfg, &fakeHistory{usageErr: boom}, nil)

	_, err := o.Predict(context.Background(), "egg", 10)
	assert.ErrorIs(t, err, boom)
}

func TestPredict_ModelPath(t *testing.T) {
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	reader := &fakeHistory{usage: map[string][]store.DailyUsage{
		"egg": wavyHistory(40),
	}}
	o := NewOrchestrator(cfg, reader, nil)

	for _, horizon := range []int{3, 5, 12} {
		res, err := o.Predict(context.Background(), "egg", horizon)
		require.NoError(t, err, "horizon %d", horizon)

		assert.Equal(t, SourceModel, res.Source, "horizon %d", horizon)
		assert.Equal(t, ReasonNone, res.Reason)
		require.Len(t, res.Forecast, horizon)
		for _, pt := range res.Forecast {
			assert.GreaterOrEqual(t, pt.PredictedDemand, 0.0)
		}
		assert.False(t, res.ReorderDate.Before(testNow))
		assert.False(t, res.ReorderDate.After(testNow.AddDate(0, 0, horizon)))
	}
}

func TestPredict_PadRepeatLastExtendsFinalValue(t *testing.T) {
	// Model output is 5 days; a 12-day request repeats day 5.
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	reader := &fakeHistory{usage: map[string][]store.DailyUsage{
		"egg": wavyHistory(40),
	}}
	o := NewOrchestrator(cfg, reader, nil)

	res, err := o.Predict(context.Background(), "egg", 12)
	require.NoError(t, err)
	require.Len(t, res.Forecast, 12)
	last := res.Forecast[4].PredictedDemand
	for i := 5; i < 12; i++ {
		assert.Equal(t, last, res.Forecast[i].PredictedDemand, "day %d", i)
	}
}

func TestPredict_PadZero(t *testing.T) {
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	cfg.Pad = PadZero
	reader := &fakeHistory{usage: map[string][]store.DailyUsage{
		"egg": wavyHistory(40),
	}}
	o := NewOrchestrator(cfg, reader, nil)

	res, err := o.Predict(context.Background(), "egg", 8)
	require.NoError(t, err)
	require.Len(t, res.Forecast, 8)
	for i := 5; i < 8; i++ {
		assert.Equal(t, 0.0, res.Forecast[i].PredictedDemand, "day %d", i)
	}
}

func TestPredict_InvalidHorizon(t *testing.T) {
	o := NewOrchestrator(tinyOrchestratorConfig("unused"), &fakeHistory{}, nil)
	_, err := o.Predict(context.Background(), "egg", 0)
	assert.Error(t, err)
}

func TestBulkPredict_EmptyCatalogUsesDefaults(t *testing.T) {
	cfg := tinyOrchestratorConfig(filepath.Join(t.TempDir(), "missing.json"))
	o := NewOrchestrator(cfg, &fakeHistory{}, nil)

	results, err := o.BulkPredict(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, results, len(defaultIngredientIDs))
	for i, res := range results {
		assert.Equal(t, defaultIngredientIDs[i], res.IngredientID)
		assert.Equal(t, SourceSynthetic, res.Source)
		assert.Equal(t, ReasonCatalogUnavailable, res.Reason)
	}
}

func TestBulkPredict_CatalogStoreError(t *testing.T) {
	cfg := tinyOrchestratorConfig(filepath.Join(t.TempDir(), "missing.json"))
	o := NewOrchestrator(cfg, &fakeHistory{
		catalogErr: &store.DataStoreError{Op: "query", Err: errors.New("locked")},
	}, nil)

	results, err := o.BulkPredict(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, results, len(defaultIngredientIDs))
	assert.Equal(t, ReasonStoreError, results[0].Reason)
}

func TestBulkPredict_CatalogEntries(t *testing.T) {
	cfg := tinyOrchestratorConfig(trainTinyArtifact(t))
	reader := &fakeHistory{
		ingredients: []store.Ingredient{
			{ID: "egg", Name: "Egg"},
			{ID: "rice", Name: "Rice"},
		},
		usage: map[string][]store.DailyUsage{
			"egg": wavyHistory(40),
		},
	}
	o := NewOrchestrator(cfg, reader, nil)

	results, err := o.BulkPredict(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "egg", results[0].IngredientID)
	assert.Equal(t, SourceModel, results[0].Source)

	// rice has no usage rows, so its entry degrades individually.
	assert.Equal(t, "rice", results[1].IngredientID)
	assert.Equal(t, SourceSynthetic, results[1].Source)
	assert.Equal(t, ReasonNoHistory, results[1].Reason)
}

func TestBulkPredict_InvalidHorizon(t *testing.T) {
	o := NewOrchestrator(tinyOrchestratorConfig("unused"), &fakeHistory{}, nil)
	_, err := o.BulkPredict(context.Background(), -1)
	assert.Error(t, err)
}

func TestReloadPicksUpNewArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	cfg := tinyOrchestratorConfig(path)
	reader := &fakeHistory{usage: map[string][]store.DailyUsage{
		"egg": wavyHistory(40),
	}}
	o := NewOrchestrator(cfg, reader, nil)

	res, err := o.Predict(context.Background(), "egg", 5)
	require.NoError(t, err)
	assert.Equal(t, SourceSynthetic, res.Source, "no artifact yet")

	p := NewTrainingPipeline(tinyHyper(), tinyTrainingConfig(), path, nil)
	report, err := p.Train(context.Background(), wavyHistory(40))
	require.NoError(t, err)
	require.Equal(t, TrainingSuccess, report.Status)

	// Load is attempted once per lifetime, so without Reload the
	// orchestrator keeps serving synthetic forecasts.
	res, err = o.Predict(context.Background(), "egg", 5)
	require.NoError(t, err)
	assert.Equal(t, SourceSynthetic, res.Source)

	o.Reload()
	res, err = o.Predict(context.Background(), "egg", 5)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, res.Source)
}

func TestFitHorizon(t *testing.T) {
	preds := []float64{1, 2, 3}

	assert.Equal(t, []float64{1, 2}, fitHorizon(preds, 2, PadRepeatLast))
	assert.Equal(t, []float64{1, 2, 3}, fitHorizon(preds, 3, PadRepeatLast))
	assert.Equal(t, []float64{1, 2, 3, 3, 3}, fitHorizon(preds, 5, PadRepeatLast))
	assert.Equal(t, []float64{1, 2, 3, 0, 0}, fitHorizon(preds, 5, PadZero))
}

func TestReorderDateThresholdCrossing(t *testing.T) {
	cfg := tinyOrchestratorConfig("unused")
	o := NewOrchestrator(cfg, &fakeHistory{}, nil)

	// Cumulative demand 90, 180, 270: crosses 200 on day index 2.
	date := o.reorderDate(testNow, []float64{90, 90, 90, 90}, 4)
	assert.Equal(t, testNow.AddDate(0, 0, 2), date)

	// Never crosses: default offset, clamped to the horizon.
	date = o.reorderDate(testNow, []float64{1, 1, 1}, 3)
	assert.Equal(t, testNow.AddDate(0, 0, 3), date)
}
