package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DailyUsageTotals returns total quantity sold per day across all menu
// items, ordered by date ascending. This is the training history for the
// demand forecaster.
func (s *Store) DailyUsageTotals(ctx context.Context) ([]DailyUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, SUM(quantity_sold)
		FROM usage
		GROUP BY date
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, wrapStoreErr("query daily usage", err)
	}
	defer rows.Close()

	return scanDailyUsage(rows)
}

// IngredientDailyUsage returns per-day consumption of a single ingredient,
// exploded through the recipe table: each unit of a menu item sold consumes
// qty_per_serving of every ingredient on its recipe.
func (s *Store) IngredientDailyUsage(ctx context.Context, ingredientID string) ([]DailyUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.date, SUM(u.quantity_sold * r.qty_per_serving)
		FROM usage u
		JOIN recipe r ON r.menu_item_id = u.menu_item_id
		WHERE r.ingredient_id = ?
		GROUP BY u.date
		ORDER BY u.date ASC
	`, ingredientID)
	if err != nil {
		return nil, wrapStoreErr("query ingredient usage", err)
	}
	defer rows.Close()

	return scanDailyUsage(rows)
}

func scanDailyUsage(rows *sql.Rows) ([]DailyUsage, error) {
	var out []DailyUsage
	for rows.Next() {
		var dateStr string
		var qty float64
		if err := rows.Scan(&dateStr, &qty); err != nil {
			return nil, wrapStoreErr("scan daily usage", err)
		}
		date, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			return nil, wrapStoreErr("parse usage date", err)
		}
		out = append(out, DailyUsage{Date: date, Quantity: qty})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate daily usage", err)
	}
	return out, nil
}

// Ingredients enumerates the catalog, ordered by ingredient id for
// deterministic results.
func (s *Store) Ingredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ingredient_id, ingredient_name, unit, shelf_life_days, reorder_point, safety_stock, par_level
		FROM ingredients
		ORDER BY ingredient_id ASC
	`)
	if err != nil {
		return nil, wrapStoreErr("query ingredients", err)
	}
	defer rows.Close()

	var out []Ingredient
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.ShelfLifeDays,
			&ing.ReorderPoint, &ing.SafetyStock, &ing.ParLevel); err != nil {
			return nil, wrapStoreErr("scan ingredient", err)
		}
		out = append(out, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate ingredients", err)
	}
	return out, nil
}

// StockLevels computes current stock per catalog entry: total purchased
// quantity minus recipe-exploded consumption. Negative stock is preserved.
// Results ordered by ingredient id.
func (s *Store) StockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			i.ingredient_id, i.ingredient_name, i.unit, i.shelf_life_days,
			i.reorder_point, i.safety_stock, i.par_level,
			COALESCE(p.total, 0) - COALESCE(c.total, 0) AS current_stock
		FROM ingredients i
		LEFT JOIN (
			SELECT ingredient_id, SUM(quantity) AS total
			FROM purchases GROUP BY ingredient_id
		) p ON p.ingredient_id = i.ingredient_id
		LEFT JOIN (
			SELECT r.ingredient_id, SUM(u.quantity_sold * r.qty_per_serving) AS total
			FROM usage u
			JOIN recipe r ON r.menu_item_id = u.menu_item_id
			GROUP BY r.ingredient_id
		) c ON c.ingredient_id = i.ingredient_id
		ORDER BY i.ingredient_id ASC
	`)
	if err != nil {
		return nil, wrapStoreErr("query stock levels", err)
	}
	defer rows.Close()

	var out []StockLevel
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.ID, &lvl.Name, &lvl.Unit, &lvl.ShelfLifeDays,
			&lvl.ReorderPoint, &lvl.SafetyStock, &lvl.ParLevel, &lvl.CurrentStock); err != nil {
			return nil, wrapStoreErr("scan stock level", err)
		}
		out = append(out, lvl)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate stock levels", err)
	}
	return out, nil
}

// Shipments returns the newest shipment records, ordered by ship date
// descending, bounded to at most limit rows.
func (s *Store) Shipments(ctx context.Context, limit int) ([]ShipmentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT shipment_id, vendor, ingredient_id, quantity, shipped_date, arrived_date, status, lead_time_days, tracking_id
		FROM shipments
		ORDER BY shipped_date DESC, shipment_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapStoreErr("query shipments", err)
	}
	defer rows.Close()

	var out []ShipmentRecord
	for rows.Next() {
		var sh ShipmentRecord
		var shipped string
		var arrived sql.NullString
		var lead sql.NullInt64
		var status string
		if err := rows.Scan(&sh.ID, &sh.Vendor, &sh.IngredientID, &sh.Quantity,
			&shipped, &arrived, &status, &lead, &sh.TrackingID); err != nil {
			return nil, wrapStoreErr("scan shipment", err)
		}
		sh.Status = ShipmentStatus(status)
		t, err := time.Parse(TimestampLayout, shipped)
		if err != nil {
			return nil, wrapStoreErr("parse shipped date", err)
		}
		sh.ShippedDate = t
		if arrived.Valid {
			at, err := time.Parse(TimestampLayout, arrived.String)
			if err != nil {
				return nil, wrapStoreErr("parse arrived date", err)
			}
			sh.ArrivedDate = &at
		}
		if lead.Valid {
			days := int(lead.Int64)
			sh.LeadTimeDays = &days
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate shipments", err)
	}
	return out, nil
}

// Purchases returns all purchase records ordered by purchase date ascending.
func (s *Store) Purchases(ctx context.Context) ([]PurchaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT purchase_id, vendor, ingredient_id, ingredient_name, quantity, unit, unit_cost, total_cost, purchase_date, invoice_id
		FROM purchases
		ORDER BY purchase_date ASC, purchase_id ASC
	`)
	if err != nil {
		return nil, wrapStoreErr("query purchases", err)
	}
	defer rows.Close()

	var out []PurchaseRecord
	for rows.Next() {
		var p PurchaseRecord
		var unitCost, totalCost, dateStr string
		if err := rows.Scan(&p.ID, &p.Vendor, &p.IngredientID, &p.IngredientName,
			&p.Quantity, &p.Unit, &unitCost, &totalCost, &dateStr, &p.InvoiceID); err != nil {
			return nil, wrapStoreErr("scan purchase", err)
		}
		var err error
		if p.UnitCost, err = decimal.NewFromString(unitCost); err != nil {
			return nil, wrapStoreErr("parse unit cost", fmt.Errorf("%q: %w", unitCost, err))
		}
		if p.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
			return nil, wrapStoreErr("parse total cost", fmt.Errorf("%q: %w", totalCost, err))
		}
		if p.PurchaseDate, err = time.Parse(DateLayout, dateStr); err != nil {
			return nil, wrapStoreErr("parse purchase date", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate purchases", err)
	}
	return out, nil
}
