package ingest

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/maishanyun/pantry/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError reports one row that failed the schema.
type ValidationError struct {
	Kind  Kind
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Kind, e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVal  cue.Value
)

func schema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaVal = schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	})
	if err := schemaVal.Err(); err != nil {
		return nil, cue.Value{}, fmt.Errorf("compile embedded schema: %w", err)
	}
	return schemaCtx, schemaVal, nil
}

// Validate checks every row of the dataset against the embedded schema.
// All failing rows are reported, joined into one error.
func Validate(ds *Dataset) error {
	ctx, root, err := schema()
	if err != nil {
		return err
	}

	defs := map[Kind]cue.Value{
		KindIngredients: root.LookupPath(cue.ParsePath("#Ingredient")),
		KindPurchases:   root.LookupPath(cue.ParsePath("#Purchase")),
		KindShipments:   root.LookupPath(cue.ParsePath("#Shipment")),
		KindUsage:       root.LookupPath(cue.ParsePath("#Usage")),
		KindSales:       root.LookupPath(cue.ParsePath("#Sale")),
	}
	for kind, def := range defs {
		if !def.Exists() {
			return fmt.Errorf("embedded schema missing definition for %s", kind)
		}
	}

	var errs []error
	check := func(kind Kind, index int, row any) {
		val := ctx.Encode(row)
		if err := val.Err(); err != nil {
			errs = append(errs, &ValidationError{Kind: kind, Index: index, Err: err})
			return
		}
		unified := defs[kind].Unify(val)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			errs = append(errs, &ValidationError{Kind: kind, Index: index, Err: err})
		}
	}
	// The schema's date pattern only fixes the shape; reject values like
	// 2026-13-40 here so nothing reaches the load phase unparsed.
	checkDate := func(kind Kind, index int, col, val string) {
		if val == "" {
			return
		}
		if _, err := time.Parse(store.DateLayout, val); err != nil {
			errs = append(errs, &ValidationError{
				Kind: kind, Index: index,
				Err: fmt.Errorf("column %s: %w", col, err),
			})
		}
	}

	for i, row := range ds.Ingredients {
		check(KindIngredients, i, row)
	}
	for i, row := range ds.Purchases {
		check(KindPurchases, i, row)
		checkDate(KindPurchases, i, "purchase_date", row.PurchaseDate)
	}
	for i, row := range ds.Shipments {
		check(KindShipments, i, row)
		checkDate(KindShipments, i, "shipped_date", row.ShippedDate)
		checkDate(KindShipments, i, "arrived_date", row.ArrivedDate)
	}
	for i, row := range ds.Usage {
		check(KindUsage, i, row)
		checkDate(KindUsage, i, "date", row.Date)
	}
	for i, row := range ds.Sales {
		check(KindSales, i, row)
		checkDate(KindSales, i, "date", row.Date)
	}
	return errors.Join(errs...)
}
