package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maishanyun/pantry/internal/store"
	"github.com/maishanyun/pantry/internal/testutil"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name                        string
		stock, reorder, safety, par float64
		want                        Status
	}{
		{"below reorder point", 150, 200, 100, 1000, StatusLowStock},
		{"below safety but below reorder wins", 50, 200, 100, 1000, StatusLowStock},
		{"below safety above reorder", 120, 100, 150, 1000, StatusCritical},
		{"above par factor", 1600, 200, 100, 1000, StatusOverstocked},
		{"exactly at par factor stays adequate", 1500, 200, 100, 1000, StatusAdequate},
		{"in band", 500, 200, 100, 1000, StatusAdequate},
		{"exactly at reorder point", 200, 200, 100, 1000, StatusAdequate},
		{"negative stock", -5, 200, 100, 1000, StatusLowStock},
		{"zero everything", 0, 0, 0, 0, StatusAdequate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.stock, tt.reorder, tt.safety, tt.par)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeKPIs(t *testing.T) {
	items := []Item{
		{Status: StatusLowStock},
		{Status: StatusCritical},
		{Status: StatusOverstocked},
		{Status: StatusAdequate},
		{Status: StatusAdequate},
	}
	k := computeKPIs(items)
	assert.Equal(t, 5, k.TotalIngredients)
	assert.Equal(t, 2, k.LowStockCount, "critical counts as low stock")
	assert.Equal(t, 1, k.OverstockedCount)
	assert.Equal(t, 2, k.AdequateCount)
	assert.InDelta(t, 40.0, k.LowStockPercentage, 1e-9)
}

func TestComputeKPIs_Empty(t *testing.T) {
	k := computeKPIs(nil)
	assert.Equal(t, 0, k.TotalIngredients)
	assert.Equal(t, 0.0, k.LowStockPercentage, "no division by zero")
}

type fakeStocks struct {
	levels []store.StockLevel
	err    error
}

func (f *fakeStocks) StockLevels(context.Context) ([]store.StockLevel, error) {
	return f.levels, f.err
}

var reportNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func TestLevels(t *testing.T) {
	stocks := &fakeStocks{levels: []store.StockLevel{
		{Ingredient: store.Ingredient{ID: "egg", Name: "Egg", Unit: "count", ReorderPoint: 100, SafetyStock: 50, ParLevel: 200}, CurrentStock: 40},
		{Ingredient: store.Ingredient{ID: "rice", Name: "Rice", Unit: "g", ReorderPoint: 2000, SafetyStock: 1000, ParLevel: 10000}, CurrentStock: 5000},
		{Ingredient: store.Ingredient{ID: "ramen", Name: "Ramen", Unit: "count", ReorderPoint: 100, SafetyStock: 50, ParLevel: 500}, CurrentStock: 900},
	}}
	c := NewClassifier(stocks, nil, testutil.NewFixedClock(reportNow).Now)

	report, err := c.Levels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceStore, report.Source)
	assert.Equal(t, reportNow, report.Timestamp)
	require.Len(t, report.Ingredients, 3)
	assert.Equal(t, StatusLowStock, report.Ingredients[0].Status)
	assert.Equal(t, StatusAdequate, report.Ingredients[1].Status)
	assert.Equal(t, StatusOverstocked, report.Ingredients[2].Status)

	assert.Equal(t, 3, report.KPIs.TotalIngredients)
	assert.Equal(t, 1, report.KPIs.LowStockCount)
	assert.Equal(t, 1, report.KPIs.OverstockedCount)
	assert.Equal(t, 1, report.KPIs.AdequateCount)
	assert.InDelta(t, 33.333, report.KPIs.LowStockPercentage, 0.001)
}

func TestLevels_StoreErrorDegradesToDemo(t *testing.T) {
	stocks := &fakeStocks{err: &store.DataStoreError{Op: "query", Err: errors.New("locked")}}
	c := NewClassifier(stocks, nil, testutil.NewFixedClock(reportNow).Now)

	report, err := c.Levels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceSynthetic, report.Source)
	require.Len(t, report.Ingredients, 10)

	// braised_pork 150 < 200, egg 50 < 100, chicken_wings 150 < 200.
	wantLow := map[string]bool{"braised_pork": true, "egg": true, "chicken_wings": true}
	for _, it := range report.Ingredients {
		if wantLow[it.IngredientID] {
			assert.Equal(t, StatusLowStock, it.Status, it.IngredientID)
		} else {
			assert.Equal(t, StatusAdequate, it.Status, it.IngredientID)
		}
	}
	assert.Equal(t, 3, report.KPIs.LowStockCount)
	assert.InDelta(t, 30.0, report.KPIs.LowStockPercentage, 1e-9)
}

func TestLevels_UnexpectedErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	c := NewClassifier(&fakeStocks{err: boom}, nil, nil)

	_, err := c.Levels(context.Background())
	assert.ErrorIs(t, err, boom)
}
