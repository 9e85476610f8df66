package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maishanyun/pantry/internal/store"
)

// Ingest validates the dataset, converts every row to its store record, and
// loads the whole upload in one transaction, file metadata included. Nothing
// is written when validation, conversion, or any insert fails.
func Ingest(ctx context.Context, st *store.Store, ds *Dataset, now time.Time) (store.FileRecord, error) {
	if err := Validate(ds); err != nil {
		return store.FileRecord{}, fmt.Errorf("validate %s: %w", ds.Filename, err)
	}

	var batch store.DatasetBatch
	for _, row := range ds.Ingredients {
		batch.Ingredients = append(batch.Ingredients, store.Ingredient{
			ID:            row.IngredientID,
			Name:          row.IngredientName,
			Unit:          row.Unit,
			ShelfLifeDays: row.ShelfLifeDays,
			ReorderPoint:  row.ReorderPoint,
			SafetyStock:   row.SafetyStock,
			ParLevel:      row.ParLevel,
		})
	}
	for _, row := range ds.Purchases {
		rec, err := purchaseRecord(row)
		if err != nil {
			return store.FileRecord{}, err
		}
		batch.Purchases = append(batch.Purchases, rec)
	}
	for _, row := range ds.Shipments {
		rec, err := shipmentRecord(row)
		if err != nil {
			return store.FileRecord{}, err
		}
		batch.Shipments = append(batch.Shipments, rec)
	}
	for _, row := range ds.Usage {
		date, err := time.Parse(store.DateLayout, row.Date)
		if err != nil {
			return store.FileRecord{}, fmt.Errorf("usage date %q: %w", row.Date, err)
		}
		batch.Usage = append(batch.Usage, store.UsageRecord{
			Date:         date,
			MenuItemID:   row.MenuItemID,
			MenuItemName: row.MenuItemName,
			QuantitySold: row.QuantitySold,
		})
	}
	for _, row := range ds.Sales {
		date, err := time.Parse(store.DateLayout, row.Date)
		if err != nil {
			return store.FileRecord{}, fmt.Errorf("sale date %q: %w", row.Date, err)
		}
		batch.Sales = append(batch.Sales, store.SaleRecord{
			Date:       date,
			MenuItemID: row.MenuItemID,
			UnitsSold:  row.UnitsSold,
			Price:      row.Price,
			Revenue:    row.Revenue,
		})
	}

	id, err := uuid.NewV7()
	if err != nil {
		return store.FileRecord{}, fmt.Errorf("generate file id: %w", err)
	}
	batch.File = store.FileRecord{
		ID:         id.String(),
		Filename:   ds.Filename,
		UploadedAt: now,
		Rows:       ds.Rows(),
	}
	if err := st.LoadDataset(ctx, batch); err != nil {
		return store.FileRecord{}, err
	}
	return batch.File, nil
}

// purchaseRecord converts a validated purchase row. Validation guarantees
// the money and date columns parse; failures here indicate a schema bug.
func purchaseRecord(row PurchaseRow) (store.PurchaseRecord, error) {
	unitCost, err := decimal.NewFromString(row.UnitCost)
	if err != nil {
		return store.PurchaseRecord{}, fmt.Errorf("unit cost %q: %w", row.UnitCost, err)
	}
	totalCost, err := decimal.NewFromString(row.TotalCost)
	if err != nil {
		return store.PurchaseRecord{}, fmt.Errorf("total cost %q: %w", row.TotalCost, err)
	}
	date, err := time.Parse(store.DateLayout, row.PurchaseDate)
	if err != nil {
		return store.PurchaseRecord{}, fmt.Errorf("purchase date %q: %w", row.PurchaseDate, err)
	}
	return store.PurchaseRecord{
		Vendor:         row.Vendor,
		IngredientID:   row.IngredientID,
		IngredientName: row.IngredientName,
		Quantity:       row.Quantity,
		Unit:           row.Unit,
		UnitCost:       unitCost,
		TotalCost:      totalCost,
		PurchaseDate:   date,
		InvoiceID:      row.InvoiceID,
	}, nil
}

// shipmentRecord converts a validated shipment row.
func shipmentRecord(row ShipmentRow) (store.ShipmentRecord, error) {
	shipped, err := time.Parse(store.DateLayout, row.ShippedDate)
	if err != nil {
		return store.ShipmentRecord{}, fmt.Errorf("shipped date %q: %w", row.ShippedDate, err)
	}
	var arrived *time.Time
	if row.ArrivedDate != "" {
		at, err := time.Parse(store.DateLayout, row.ArrivedDate)
		if err != nil {
			return store.ShipmentRecord{}, fmt.Errorf("arrived date %q: %w", row.ArrivedDate, err)
		}
		arrived = &at
	}
	return store.ShipmentRecord{
		Vendor:       row.Vendor,
		IngredientID: row.IngredientID,
		Quantity:     row.Quantity,
		ShippedDate:  shipped,
		ArrivedDate:  arrived,
		Status:       store.ShipmentStatus(row.Status),
		LeadTimeDays: row.LeadTimeDays,
		TrackingID:   row.TrackingID,
	}, nil
}
