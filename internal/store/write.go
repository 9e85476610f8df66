package store

import (
	"context"
	"database/sql"
)

// execer abstracts *sql.DB and *sql.Tx so each write can run standalone
// or inside LoadDataset's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertIngredient inserts or replaces a catalog entry.
// The catalog is owned by the catalog-management surface; the forecasting
// core only reads it.
func (s *Store) UpsertIngredient(ctx context.Context, ing Ingredient) error {
	return upsertIngredient(ctx, s.db, ing)
}

func upsertIngredient(ctx context.Context, e execer, ing Ingredient) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO ingredients
		(ingredient_id, ingredient_name, unit, shelf_life_days, reorder_point, safety_stock, par_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ingredient_id) DO UPDATE SET
			ingredient_name = excluded.ingredient_name,
			unit            = excluded.unit,
			shelf_life_days = excluded.shelf_life_days,
			reorder_point   = excluded.reorder_point,
			safety_stock    = excluded.safety_stock,
			par_level       = excluded.par_level
	`,
		ing.ID, ing.Name, ing.Unit, ing.ShelfLifeDays,
		ing.ReorderPoint, ing.SafetyStock, ing.ParLevel,
	)
	if err != nil {
		return wrapStoreErr("upsert ingredient", err)
	}
	return nil
}

// InsertPurchase appends a purchase record. Costs are stored as decimal TEXT.
func (s *Store) InsertPurchase(ctx context.Context, p PurchaseRecord) error {
	return insertPurchase(ctx, s.db, p)
}

func insertPurchase(ctx context.Context, e execer, p PurchaseRecord) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO purchases
		(vendor, ingredient_id, ingredient_name, quantity, unit, unit_cost, total_cost, purchase_date, invoice_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Vendor, p.IngredientID, p.IngredientName, p.Quantity, p.Unit,
		p.UnitCost.String(), p.TotalCost.String(),
		p.PurchaseDate.Format(DateLayout), p.InvoiceID,
	)
	if err != nil {
		return wrapStoreErr("insert purchase", err)
	}
	return nil
}

// InsertShipment appends a shipment record.
// The schema rejects delivered shipments without a lead time and in-transit
// shipments with one.
func (s *Store) InsertShipment(ctx context.Context, sh ShipmentRecord) error {
	return insertShipment(ctx, s.db, sh)
}

func insertShipment(ctx context.Context, e execer, sh ShipmentRecord) error {
	var arrived any
	if sh.ArrivedDate != nil {
		arrived = sh.ArrivedDate.Format(TimestampLayout)
	}
	var lead any
	if sh.LeadTimeDays != nil {
		lead = *sh.LeadTimeDays
	}

	_, err := e.ExecContext(ctx, `
		INSERT INTO shipments
		(vendor, ingredient_id, quantity, shipped_date, arrived_date, status, lead_time_days, tracking_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sh.Vendor, sh.IngredientID, sh.Quantity,
		sh.ShippedDate.Format(TimestampLayout), arrived,
		string(sh.Status), lead, sh.TrackingID,
	)
	if err != nil {
		return wrapStoreErr("insert shipment", err)
	}
	return nil
}

// InsertUsage appends a usage record. Usage history is append-only; there is
// no update path.
func (s *Store) InsertUsage(ctx context.Context, u UsageRecord) error {
	return insertUsage(ctx, s.db, u)
}

func insertUsage(ctx context.Context, e execer, u UsageRecord) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO usage (date, menu_item_id, menu_item_name, quantity_sold)
		VALUES (?, ?, ?, ?)
	`,
		u.Date.Format(DateLayout), u.MenuItemID, u.MenuItemName, u.QuantitySold,
	)
	if err != nil {
		return wrapStoreErr("insert usage", err)
	}
	return nil
}

// InsertSale appends a sale record.
func (s *Store) InsertSale(ctx context.Context, sale SaleRecord) error {
	return insertSale(ctx, s.db, sale)
}

func insertSale(ctx context.Context, e execer, sale SaleRecord) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO sales (date, menu_item_id, units_sold, price, revenue)
		VALUES (?, ?, ?, ?, ?)
	`,
		sale.Date.Format(DateLayout), sale.MenuItemID, sale.UnitsSold, sale.Price, sale.Revenue,
	)
	if err != nil {
		return wrapStoreErr("insert sale", err)
	}
	return nil
}

// UpsertRecipeLine inserts or replaces a menu-item/ingredient mapping.
func (s *Store) UpsertRecipeLine(ctx context.Context, r RecipeLine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipe (menu_item_id, ingredient_id, qty_per_serving)
		VALUES (?, ?, ?)
		ON CONFLICT(menu_item_id, ingredient_id) DO UPDATE SET
			qty_per_serving = excluded.qty_per_serving
	`,
		r.MenuItemID, r.IngredientID, r.QtyPerServing,
	)
	if err != nil {
		return wrapStoreErr("upsert recipe line", err)
	}
	return nil
}

// RecordFile stores ingestion metadata for an uploaded dataset.
func (s *Store) RecordFile(ctx context.Context, f FileRecord) error {
	return recordFile(ctx, s.db, f)
}

func recordFile(ctx context.Context, e execer, f FileRecord) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO files (file_id, filename, uploaded_at, rows_processed)
		VALUES (?, ?, ?, ?)
	`,
		f.ID, f.Filename, f.UploadedAt.Format(TimestampLayout), f.Rows,
	)
	if err != nil {
		return wrapStoreErr("record file", err)
	}
	return nil
}

// DatasetBatch groups every record of one upload, including its file
// metadata, for atomic loading.
type DatasetBatch struct {
	Ingredients []Ingredient
	Purchases   []PurchaseRecord
	Shipments   []ShipmentRecord
	Usage       []UsageRecord
	Sales       []SaleRecord
	File        FileRecord
}

// LoadDataset writes an entire upload in a single transaction. Either every
// record lands, file metadata included, or none do.
func (s *Store) LoadDataset(ctx context.Context, batch DatasetBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr("load dataset: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ing := range batch.Ingredients {
		if err := upsertIngredient(ctx, tx, ing); err != nil {
			return err
		}
	}
	for _, p := range batch.Purchases {
		if err := insertPurchase(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, sh := range batch.Shipments {
		if err := insertShipment(ctx, tx, sh); err != nil {
			return err
		}
	}
	for _, u := range batch.Usage {
		if err := insertUsage(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, sale := range batch.Sales {
		if err := insertSale(ctx, tx, sale); err != nil {
			return err
		}
	}
	if err := recordFile(ctx, tx, batch.File); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr("load dataset: commit", err)
	}
	return nil
}
