package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts used for TEXT columns. Usage, sales and purchase rows carry
// calendar dates; shipment rows carry full timestamps.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339
)

// ShipmentStatus enumerates the lifecycle states of a vendor shipment.
type ShipmentStatus string

const (
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelayed   ShipmentStatus = "delayed"
)

// Ingredient is a catalog entry with replenishment thresholds.
// Created and updated by the catalog-management surface; read-only to the
// forecasting core.
type Ingredient struct {
	ID            string
	Name          string
	Unit          string
	ShelfLifeDays int
	ReorderPoint  float64
	SafetyStock   float64
	ParLevel      float64
}

// PurchaseRecord is a single vendor purchase. Costs are decimal to avoid
// binary-float drift on money fields.
type PurchaseRecord struct {
	ID             int64
	Vendor         string
	IngredientID   string
	IngredientName string
	Quantity       float64
	Unit           string
	UnitCost       decimal.Decimal
	TotalCost      decimal.Decimal
	PurchaseDate   time.Time
	InvoiceID      string
}

// ShipmentRecord is a vendor shipment. LeadTimeDays is nil until the
// shipment has an observed lead time (always set once delivered).
type ShipmentRecord struct {
	ID           int64
	Vendor       string
	IngredientID string
	Quantity     float64
	ShippedDate  time.Time
	ArrivedDate  *time.Time
	Status       ShipmentStatus
	LeadTimeDays *int
	TrackingID   string
}

// UsageRecord is one day's consumption of a menu item. Append-only.
type UsageRecord struct {
	ID           int64
	Date         time.Time
	MenuItemID   string
	MenuItemName string
	QuantitySold int
}

// SaleRecord is one day's revenue for a menu item.
type SaleRecord struct {
	ID         int64
	Date       time.Time
	MenuItemID string
	UnitsSold  int
	Price      float64
	Revenue    float64
}

// RecipeLine maps a menu item to the quantity of an ingredient consumed
// per serving.
type RecipeLine struct {
	MenuItemID    string
	IngredientID  string
	QtyPerServing float64
}

// FileRecord is ingestion metadata for an uploaded dataset.
type FileRecord struct {
	ID         string
	Filename   string
	UploadedAt time.Time
	Rows       int
}

// DailyUsage is an aggregated per-day demand quantity, ordered by date.
type DailyUsage struct {
	Date     time.Time
	Quantity float64
}

// StockLevel pairs a catalog entry with its computed current stock
// (purchases minus consumption). Negative stock is preserved - it signals
// over-consumption relative to recorded purchases.
type StockLevel struct {
	Ingredient
	CurrentStock float64
}
