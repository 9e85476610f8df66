package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind names one ingestible table.
type Kind string

const (
	KindIngredients Kind = "ingredients"
	KindPurchases   Kind = "purchases"
	KindShipments   Kind = "shipments"
	KindUsage       Kind = "usage"
	KindSales       Kind = "sales"
)

// Kinds lists the ingestible tables in load order.
func Kinds() []Kind {
	return []Kind{KindIngredients, KindPurchases, KindShipments, KindUsage, KindSales}
}

// IngredientRow is one catalog entry as uploaded.
type IngredientRow struct {
	IngredientID   string  `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Unit           string  `json:"unit"`
	ShelfLifeDays  int     `json:"shelf_life_days"`
	ReorderPoint   float64 `json:"reorder_point"`
	SafetyStock    float64 `json:"safety_stock"`
	ParLevel       float64 `json:"par_level"`
}

// PurchaseRow is one vendor purchase as uploaded. Money columns stay
// strings until they pass validation and convert to decimals at load.
type PurchaseRow struct {
	Vendor         string  `json:"vendor"`
	IngredientID   string  `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	UnitCost       string  `json:"unit_cost"`
	TotalCost      string  `json:"total_cost"`
	PurchaseDate   string  `json:"purchase_date"`
	InvoiceID      string  `json:"invoice_id"`
}

// ShipmentRow is one vendor shipment as uploaded. ArrivedDate and
// LeadTimeDays stay empty until observed; the schema ties both to status.
type ShipmentRow struct {
	Vendor       string  `json:"vendor"`
	IngredientID string  `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	ShippedDate  string  `json:"shipped_date"`
	ArrivedDate  string  `json:"arrived_date,omitempty"`
	Status       string  `json:"status"`
	LeadTimeDays *int    `json:"lead_time_days,omitempty"`
	TrackingID   string  `json:"tracking_id"`
}

// UsageRow is one day's consumption of a menu item as uploaded.
type UsageRow struct {
	Date         string `json:"date"`
	MenuItemID   string `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name"`
	QuantitySold int    `json:"quantity_sold"`
}

// SaleRow is one day's revenue for a menu item as uploaded.
type SaleRow struct {
	Date       string  `json:"date"`
	MenuItemID string  `json:"menu_item_id"`
	UnitsSold  int     `json:"units_sold"`
	Price      float64 `json:"price"`
	Revenue    float64 `json:"revenue"`
}

// Dataset is the typed content of one upload.
type Dataset struct {
	Filename    string
	Ingredients []IngredientRow
	Purchases   []PurchaseRow
	Shipments   []ShipmentRow
	Usage       []UsageRow
	Sales       []SaleRow
}

// Rows is the total row count across all tables.
func (d *Dataset) Rows() int {
	return len(d.Ingredients) + len(d.Purchases) + len(d.Shipments) +
		len(d.Usage) + len(d.Sales)
}

// CanonicalID normalizes an identifier column value: Unicode NFC,
// lowercase, trimmed, spaces and hyphens folded to underscores, anything
// else outside [a-z0-9_] dropped.
func CanonicalID(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseCSV reads rows of one kind from a headered CSV stream into ds.
// Identifier columns are canonicalized during parsing so validation sees
// final values. Column order is free; unknown columns are ignored.
func ParseCSV(ds *Dataset, kind Kind, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("%s: empty input", kind)
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", kind, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: read row: %w", kind, err)
		}
		line++
		if err := parseRecord(ds, kind, cols, rec); err != nil {
			return fmt.Errorf("%s line %d: %w", kind, line, err)
		}
	}
}

func parseRecord(ds *Dataset, kind Kind, cols map[string]int, rec []string) error {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(name string) (float64, error) {
		s := field(name)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}
	integer := func(name string) (int, error) {
		s := field(name)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}

	switch kind {
	case KindIngredients:
		shelf, err := integer("shelf_life_days")
		if err != nil {
			return err
		}
		reorder, err := num("reorder_point")
		if err != nil {
			return err
		}
		safety, err := num("safety_stock")
		if err != nil {
			return err
		}
		par, err := num("par_level")
		if err != nil {
			return err
		}
		ds.Ingredients = append(ds.Ingredients, IngredientRow{
			IngredientID:   CanonicalID(field("ingredient_id")),
			IngredientName: field("ingredient_name"),
			Unit:           field("unit"),
			ShelfLifeDays:  shelf,
			ReorderPoint:   reorder,
			SafetyStock:    safety,
			ParLevel:       par,
		})
	case KindPurchases:
		qty, err := num("quantity")
		if err != nil {
			return err
		}
		ds.Purchases = append(ds.Purchases, PurchaseRow{
			Vendor:         field("vendor"),
			IngredientID:   CanonicalID(field("ingredient_id")),
			IngredientName: field("ingredient_name"),
			Quantity:       qty,
			Unit:           field("unit"),
			UnitCost:       field("unit_cost"),
			TotalCost:      field("total_cost"),
			PurchaseDate:   field("purchase_date"),
			InvoiceID:      field("invoice_id"),
		})
	case KindShipments:
		qty, err := num("quantity")
		if err != nil {
			return err
		}
		var lead *int
		if s := field("lead_time_days"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("column lead_time_days: %w", err)
			}
			lead = &v
		}
		ds.Shipments = append(ds.Shipments, ShipmentRow{
			Vendor:       field("vendor"),
			IngredientID: CanonicalID(field("ingredient_id")),
			Quantity:     qty,
			ShippedDate:  field("shipped_date"),
			ArrivedDate:  field("arrived_date"),
			Status:       field("status"),
			LeadTimeDays: lead,
			TrackingID:   field("tracking_id"),
		})
	case KindUsage:
		sold, err := integer("quantity_sold")
		if err != nil {
			return err
		}
		ds.Usage = append(ds.Usage, UsageRow{
			Date:         field("date"),
			MenuItemID:   CanonicalID(field("menu_item_id")),
			MenuItemName: field("menu_item_name"),
			QuantitySold: sold,
		})
	case KindSales:
		sold, err := integer("units_sold")
		if err != nil {
			return err
		}
		price, err := num("price")
		if err != nil {
			return err
		}
		revenue, err := num("revenue")
		if err != nil {
			return err
		}
		ds.Sales = append(ds.Sales, SaleRow{
			Date:       field("date"),
			MenuItemID: CanonicalID(field("menu_item_id")),
			UnitsSold:  sold,
			Price:      price,
			Revenue:    revenue,
		})
	default:
		return fmt.Errorf("unknown dataset kind %q", kind)
	}
	return nil
}
