// Package demo seeds a store with a deterministic sample dataset: an
// 18-ingredient catalog, 90 days of menu-item usage and sales, vendor
// purchases and shipments, and recipe mappings. The same seed and clock
// always produce the same rows, which makes the dataset usable as a test
// fixture as well as a demo.
package demo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maishanyun/pantry/internal/store"
)

// Config parameterizes one seeding run. Now anchors all generated dates;
// history is generated for Days days ending the day before Now.
type Config struct {
	Seed int64
	Days int
	Now  time.Time
}

// DefaultConfig generates 90 days of history, which is enough to train on.
func DefaultConfig(now time.Time) Config {
	return Config{Seed: 42, Days: 90, Now: now}
}

// Summary reports how many rows a seeding run wrote.
type Summary struct {
	Ingredients int `json:"ingredients"`
	Purchases   int `json:"purchases"`
	Shipments   int `json:"shipments"`
	Usage       int `json:"usage"`
	Sales       int `json:"sales"`
	RecipeLines int `json:"recipe_lines"`
}

type catalogEntry struct {
	id, name, unit string
	shelfLife      int
	reorder        float64
	safety         float64
	par            float64
}

var catalog = []catalogEntry{
	{"braised_beef", "Braised Beef", "g", 7, 200, 100, 1000},
	{"braised_chicken", "Braised Chicken", "g", 7, 300, 150, 1200},
	{"braised_pork", "Braised Pork", "g", 7, 200, 100, 1000},
	{"egg", "Egg", "count", 30, 100, 50, 200},
	{"rice", "Rice", "g", 365, 2000, 1000, 10000},
	{"ramen", "Ramen", "count", 90, 100, 50, 500},
	{"rice_noodles", "Rice Noodles", "g", 90, 1500, 750, 6000},
	{"chicken_thigh", "Chicken Thigh", "pcs", 3, 10, 5, 50},
	{"chicken_wings", "Chicken Wings", "pcs", 3, 200, 100, 500},
	{"flour", "Flour", "g", 180, 1000, 500, 5000},
	{"pickle_cabbage", "Pickle Cabbage", "g", 30, 500, 250, 2000},
	{"green_onion", "Green Onion", "g", 7, 200, 100, 1000},
	{"cilantro", "Cilantro", "g", 7, 100, 50, 500},
	{"white_onion", "White Onion", "count", 30, 20, 10, 100},
	{"peas", "Peas", "g", 7, 500, 250, 2000},
	{"carrot", "Carrot", "g", 14, 500, 250, 2000},
	{"bokchoy", "Bokchoy", "g", 7, 500, 250, 2000},
	{"tapioca_starch", "Tapioca Starch", "g", 365, 500, 250, 2000},
}

type menuItem struct {
	id, name string
	price    float64
}

var menu = []menuItem{
	{"beef_ramen", "Beef Ramen", 12.99},
	{"chicken_ramen", "Chicken Ramen", 12.99},
	{"pork_ramen", "Pork Ramen", 12.99},
	{"beef_fried_rice", "Beef Fried Rice", 11.99},
	{"chicken_fried_rice", "Chicken Fried Rice", 11.99},
	{"pork_fried_rice", "Pork Fried Rice", 11.99},
	{"fried_wings", "Fried Wings", 8.99},
}

var recipes = []store.RecipeLine{
	{MenuItemID: "beef_ramen", IngredientID: "braised_beef", QtyPerServing: 140},
	{MenuItemID: "beef_ramen", IngredientID: "egg", QtyPerServing: 0.5},
	{MenuItemID: "beef_ramen", IngredientID: "ramen", QtyPerServing: 1},
	{MenuItemID: "beef_ramen", IngredientID: "green_onion", QtyPerServing: 20},
	{MenuItemID: "beef_ramen", IngredientID: "cilantro", QtyPerServing: 20},
	{MenuItemID: "chicken_ramen", IngredientID: "braised_chicken", QtyPerServing: 140},
	{MenuItemID: "chicken_ramen", IngredientID: "egg", QtyPerServing: 0.5},
	{MenuItemID: "chicken_ramen", IngredientID: "ramen", QtyPerServing: 1},
	{MenuItemID: "chicken_ramen", IngredientID: "green_onion", QtyPerServing: 20},
	{MenuItemID: "chicken_ramen", IngredientID: "cilantro", QtyPerServing: 20},
	{MenuItemID: "pork_ramen", IngredientID: "braised_pork", QtyPerServing: 140},
	{MenuItemID: "pork_ramen", IngredientID: "egg", QtyPerServing: 0.5},
	{MenuItemID: "pork_ramen", IngredientID: "ramen", QtyPerServing: 1},
	{MenuItemID: "pork_ramen", IngredientID: "green_onion", QtyPerServing: 20},
	{MenuItemID: "pork_ramen", IngredientID: "cilantro", QtyPerServing: 20},
	{MenuItemID: "beef_fried_rice", IngredientID: "braised_beef", QtyPerServing: 100},
	{MenuItemID: "beef_fried_rice", IngredientID: "egg", QtyPerServing: 1},
	{MenuItemID: "beef_fried_rice", IngredientID: "rice", QtyPerServing: 350},
	{MenuItemID: "beef_fried_rice", IngredientID: "white_onion", QtyPerServing: 20},
	{MenuItemID: "beef_fried_rice", IngredientID: "peas", QtyPerServing: 10},
	{MenuItemID: "beef_fried_rice", IngredientID: "carrot", QtyPerServing: 10},
	{MenuItemID: "chicken_fried_rice", IngredientID: "braised_chicken", QtyPerServing: 100},
	{MenuItemID: "chicken_fried_rice", IngredientID: "egg", QtyPerServing: 1},
	{MenuItemID: "chicken_fried_rice", IngredientID: "rice", QtyPerServing: 350},
	{MenuItemID: "chicken_fried_rice", IngredientID: "white_onion", QtyPerServing: 20},
	{MenuItemID: "chicken_fried_rice", IngredientID: "peas", QtyPerServing: 10},
	{MenuItemID: "chicken_fried_rice", IngredientID: "carrot", QtyPerServing: 10},
	{MenuItemID: "pork_fried_rice", IngredientID: "braised_pork", QtyPerServing: 100},
	{MenuItemID: "pork_fried_rice", IngredientID: "egg", QtyPerServing: 1},
	{MenuItemID: "pork_fried_rice", IngredientID: "rice", QtyPerServing: 350},
	{MenuItemID: "pork_fried_rice", IngredientID: "white_onion", QtyPerServing: 20},
	{MenuItemID: "pork_fried_rice", IngredientID: "peas", QtyPerServing: 10},
	{MenuItemID: "pork_fried_rice", IngredientID: "carrot", QtyPerServing: 10},
	{MenuItemID: "fried_wings", IngredientID: "chicken_wings", QtyPerServing: 8},
	{MenuItemID: "fried_wings", IngredientID: "flour", QtyPerServing: 50},
}

var vendors = []string{
	"Fresh Produce Co.", "Meat Distributors Inc.", "Grain Suppliers", "Asian Market",
}

// Seed loads the sample dataset into the store.
func Seed(ctx context.Context, st *store.Store, cfg Config) (Summary, error) {
	if cfg.Days < 1 {
		return Summary{}, fmt.Errorf("days must be >= 1, got %d", cfg.Days)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	day := cfg.Now.Truncate(24 * time.Hour)
	start := day.AddDate(0, 0, -cfg.Days)

	var sum Summary
	for _, c := range catalog {
		err := st.UpsertIngredient(ctx, store.Ingredient{
			ID:            c.id,
			Name:          c.name,
			Unit:          c.unit,
			ShelfLifeDays: c.shelfLife,
			ReorderPoint:  c.reorder,
			SafetyStock:   c.safety,
			ParLevel:      c.par,
		})
		if err != nil {
			return sum, err
		}
		sum.Ingredients++
	}

	for _, r := range recipes {
		if err := st.UpsertRecipeLine(ctx, r); err != nil {
			return sum, err
		}
		sum.RecipeLines++
	}

	// Per-item demand: a fixed base with a weekly wave and a little
	// noise, so trained models have a real pattern to find.
	base := make([]int, len(menu))
	for i := range menu {
		base[i] = 5 + rng.Intn(10)
	}
	for d := 0; d < cfg.Days; d++ {
		date := start.AddDate(0, 0, d)
		wave := 3 * math.Sin(2*math.Pi*float64(date.Weekday())/7)
		for i, m := range menu {
			qty := base[i] + int(wave) + rng.Intn(4)
			if qty < 0 {
				qty = 0
			}
			err := st.InsertUsage(ctx, store.UsageRecord{
				Date:         date,
				MenuItemID:   m.id,
				MenuItemName: m.name,
				QuantitySold: qty,
			})
			if err != nil {
				return sum, err
			}
			sum.Usage++
			err = st.InsertSale(ctx, store.SaleRecord{
				Date:       date,
				MenuItemID: m.id,
				UnitsSold:  qty,
				Price:      m.price,
				Revenue:    float64(qty) * m.price,
			})
			if err != nil {
				return sum, err
			}
			sum.Sales++
		}
	}

	for i := 0; i < 50; i++ {
		c := catalog[rng.Intn(len(catalog))]
		qty := 10 + rng.Intn(91)
		unitCost := decimal.New(int64(100+rng.Intn(900)), -2)
		err := st.InsertPurchase(ctx, store.PurchaseRecord{
			Vendor:         vendors[rng.Intn(len(vendors))],
			IngredientID:   c.id,
			IngredientName: c.name,
			Quantity:       float64(qty),
			Unit:           c.unit,
			UnitCost:       unitCost,
			TotalCost:      unitCost.Mul(decimal.NewFromInt(int64(qty))),
			PurchaseDate:   start.AddDate(0, 0, rng.Intn(cfg.Days)),
			InvoiceID:      fmt.Sprintf("INV-%04d", 1000+rng.Intn(9000)),
		})
		if err != nil {
			return sum, err
		}
		sum.Purchases++
	}

	shipStart := day.AddDate(0, 0, -30)
	for i := 0; i < 20; i++ {
		c := catalog[rng.Intn(len(catalog))]
		shipped := shipStart.AddDate(0, 0, rng.Intn(30))
		rec := store.ShipmentRecord{
			Vendor:       vendors[rng.Intn(3)],
			IngredientID: c.id,
			Quantity:     float64(20 + rng.Intn(81)),
			ShippedDate:  shipped,
			TrackingID:   fmt.Sprintf("TRK%06d", 100000+rng.Intn(900000)),
		}
		switch rng.Intn(3) {
		case 0:
			lead := 1 + rng.Intn(7)
			arrived := shipped.AddDate(0, 0, lead)
			rec.Status = store.ShipmentDelivered
			rec.ArrivedDate = &arrived
			rec.LeadTimeDays = &lead
		case 1:
			rec.Status = store.ShipmentInTransit
		default:
			rec.Status = store.ShipmentDelayed
		}
		if err := st.InsertShipment(ctx, rec); err != nil {
			return sum, err
		}
		sum.Shipments++
	}

	return sum, nil
}
