package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/maishanyun/pantry/internal/store"
)

// Status is an ingredient's replenishment state.
type Status string

const (
	StatusLowStock    Status = "low_stock"
	StatusCritical    Status = "critical"
	StatusOverstocked Status = "overstocked"
	StatusAdequate    Status = "adequate"
)

// Source tags a report with where its numbers came from.
type Source string

const (
	SourceStore     Source = "store"
	SourceSynthetic Source = "synthetic"
)

// overstockFactor is the multiple of par level above which an ingredient
// counts as overstocked.
const overstockFactor = 1.5

// Item is one classified catalog entry.
type Item struct {
	IngredientID   string  `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Unit           string  `json:"unit"`
	CurrentStock   float64 `json:"current_stock"`
	ReorderPoint   float64 `json:"reorder_point"`
	SafetyStock    float64 `json:"safety_stock"`
	ParLevel       float64 `json:"par_level"`
	Status         Status  `json:"status"`
}

// KPIs are the dashboard aggregates over one report. LowStockCount covers
// both low_stock and critical.
type KPIs struct {
	TotalIngredients   int     `json:"total_ingredients"`
	LowStockCount      int     `json:"low_stock_count"`
	OverstockedCount   int     `json:"overstocked_count"`
	AdequateCount      int     `json:"adequate_count"`
	LowStockPercentage float64 `json:"low_stock_percentage"`
}

// Report is a point-in-time inventory snapshot.
type Report struct {
	Ingredients []Item    `json:"ingredients"`
	KPIs        KPIs      `json:"kpis"`
	Source      Source    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// Classify applies the ordered status rules to a single stock level.
func Classify(stock, reorderPoint, safetyStock, parLevel float64) Status {
	switch {
	case stock < reorderPoint:
		return StatusLowStock
	case stock < safetyStock:
		return StatusCritical
	case stock > parLevel*overstockFactor:
		return StatusOverstocked
	default:
		return StatusAdequate
	}
}

// StockReader is the data-store contract the classifier consumes.
// *store.Store satisfies it.
type StockReader interface {
	StockLevels(ctx context.Context) ([]store.StockLevel, error)
}

// Classifier builds inventory reports from computed stock levels.
type Classifier struct {
	stocks StockReader
	logger *slog.Logger
	now    func() time.Time
}

// NewClassifier wires a classifier. A nil logger falls back to
// slog.Default, a nil now to time.Now.
func NewClassifier(stocks StockReader, logger *slog.Logger, now func() time.Time) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Classifier{stocks: stocks, logger: logger, now: now}
}

// Levels classifies every catalog entry and computes KPIs. A store
// failure degrades to the demo report instead of erroring; anything else
// propagates.
func (c *Classifier) Levels(ctx context.Context) (Report, error) {
	levels, err := c.stocks.StockLevels(ctx)
	if err != nil {
		if store.IsDataStoreError(err) {
			c.logger.Warn("stock levels unavailable, using demo inventory", "error", err)
			return c.demoReport(), nil
		}
		return Report{}, err
	}

	items := make([]Item, 0, len(levels))
	for _, lv := range levels {
		items = append(items, Item{
			IngredientID:   lv.ID,
			IngredientName: lv.Name,
			Unit:           lv.Unit,
			CurrentStock:   lv.CurrentStock,
			ReorderPoint:   lv.ReorderPoint,
			SafetyStock:    lv.SafetyStock,
			ParLevel:       lv.ParLevel,
			Status:         Classify(lv.CurrentStock, lv.ReorderPoint, lv.SafetyStock, lv.ParLevel),
		})
	}
	return Report{
		Ingredients: items,
		KPIs:        computeKPIs(items),
		Source:      SourceStore,
		Timestamp:   c.now(),
	}, nil
}

func computeKPIs(items []Item) KPIs {
	k := KPIs{TotalIngredients: len(items)}
	for _, it := range items {
		switch it.Status {
		case StatusLowStock, StatusCritical:
			k.LowStockCount++
		case StatusOverstocked:
			k.OverstockedCount++
		default:
			k.AdequateCount++
		}
	}
	if k.TotalIngredients > 0 {
		k.LowStockPercentage = float64(k.LowStockCount) / float64(k.TotalIngredients) * 100
	}
	return k
}

// demoCatalog backs the degraded report. Safety stock is half the reorder
// point across the board.
var demoCatalog = []struct {
	id, name, unit      string
	stock, reorder, par float64
}{
	{"braised_beef", "Braised Beef", "g", 500, 200, 1000},
	{"braised_chicken", "Braised Chicken", "g", 800, 300, 1200},
	{"braised_pork", "Braised Pork", "g", 150, 200, 1000},
	{"egg", "Egg", "count", 50, 100, 200},
	{"rice", "Rice", "g", 5000, 2000, 10000},
	{"ramen", "Ramen", "count", 200, 100, 500},
	{"rice_noodles", "Rice Noodles", "g", 3000, 1500, 6000},
	{"green_onion", "Green Onion", "g", 500, 200, 1000},
	{"cilantro", "Cilantro", "g", 200, 100, 500},
	{"chicken_wings", "Chicken Wings", "pcs", 150, 200, 500},
}

func (c *Classifier) demoReport() Report {
	items := make([]Item, 0, len(demoCatalog))
	for _, d := range demoCatalog {
		items = append(items, Item{
			IngredientID:   d.id,
			IngredientName: d.name,
			Unit:           d.unit,
			CurrentStock:   d.stock,
			ReorderPoint:   d.reorder,
			SafetyStock:    d.reorder * 0.5,
			ParLevel:       d.par,
			Status:         Classify(d.stock, d.reorder, d.reorder*0.5, d.par),
		})
	}
	return Report{
		Ingredients: items,
		KPIs:        computeKPIs(items),
		Source:      SourceSynthetic,
		Timestamp:   c.now(),
	}
}
