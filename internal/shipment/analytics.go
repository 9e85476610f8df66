package shipment

import (
	"context"
	"log/slog"
	"time"

	"github.com/maishanyun/pantry/internal/store"
)

// onTimeSLADays is the delivery lead time at or under which a delivered
// shipment counts as on time.
const onTimeSLADays = 7

// defaultLimit bounds a summary to the newest shipments by ship date.
const defaultLimit = 100

// LeadTimePolicy controls how shipments without an observed lead time
// enter the average.
type LeadTimePolicy int

const (
	// ZeroFill counts unknown lead times as zero days. The default.
	ZeroFill LeadTimePolicy = iota
	// ExcludeUnknown averages only shipments with an observed lead time.
	ExcludeUnknown
)

// Source tags a summary with where its shipments came from.
type Source string

const (
	SourceStore     Source = "store"
	SourceSynthetic Source = "synthetic"
)

// Stats are the aggregate delay statistics over one set of shipments.
type Stats struct {
	Total           int     `json:"total_shipments"`
	DelayedCount    int     `json:"delayed_count"`
	OnTimeCount     int     `json:"on_time_count"`
	AverageLeadTime float64 `json:"average_lead_time"`
}

// Report is a point-in-time shipment summary.
type Report struct {
	Shipments []store.ShipmentRecord `json:"shipments"`
	Stats     Stats                  `json:"statistics"`
	Source    Source                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
}

// Summarize computes delay statistics over a set of shipments. Pure.
func Summarize(shipments []store.ShipmentRecord, policy LeadTimePolicy) Stats {
	st := Stats{Total: len(shipments)}
	var leadSum float64
	var leadN int
	for _, s := range shipments {
		if s.Status == store.ShipmentDelayed {
			st.DelayedCount++
		}
		if s.Status == store.ShipmentDelivered && s.LeadTimeDays != nil && *s.LeadTimeDays <= onTimeSLADays {
			st.OnTimeCount++
		}
		if s.LeadTimeDays != nil {
			leadSum += float64(*s.LeadTimeDays)
			leadN++
		}
	}
	switch policy {
	case ExcludeUnknown:
		if leadN > 0 {
			st.AverageLeadTime = leadSum / float64(leadN)
		}
	default:
		if st.Total > 0 {
			st.AverageLeadTime = leadSum / float64(st.Total)
		}
	}
	return st
}

// ShipmentReader is the data-store contract the analytics consume.
// *store.Store satisfies it.
type ShipmentReader interface {
	Shipments(ctx context.Context, limit int) ([]store.ShipmentRecord, error)
}

// Analytics builds shipment summaries from the store.
type Analytics struct {
	shipments ShipmentReader
	policy    LeadTimePolicy
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnalytics wires shipment analytics. A nil logger falls back to
// slog.Default, a nil now to time.Now.
func NewAnalytics(shipments ShipmentReader, policy LeadTimePolicy, logger *slog.Logger, now func() time.Time) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Analytics{shipments: shipments, policy: policy, logger: logger, now: now}
}

// Summary reads the newest shipments (ship date descending, capped at
// 100) and computes delay statistics. A store failure degrades to the
// demo set instead of erroring; anything else propagates.
func (a *Analytics) Summary(ctx context.Context) (Report, error) {
	shipments, err := a.shipments.Shipments(ctx, defaultLimit)
	if err != nil {
		if store.IsDataStoreError(err) {
			a.logger.Warn("shipments unavailable, using demo set", "error", err)
			return a.demoReport(), nil
		}
		return Report{}, err
	}
	return Report{
		Shipments: shipments,
		Stats:     Summarize(shipments, a.policy),
		Source:    SourceStore,
		Timestamp: a.now(),
	}, nil
}

func (a *Analytics) demoReport() Report {
	now := a.now()
	lead3, lead8 := 3, 8
	arrived2 := now.AddDate(0, 0, -2)
	arrived8 := now.AddDate(0, 0, -8)
	shipments := []store.ShipmentRecord{
		{
			ID:           1,
			Vendor:       "Fresh Produce Co.",
			IngredientID: "green_onion",
			Quantity:     20,
			ShippedDate:  now.AddDate(0, 0, -5),
			ArrivedDate:  &arrived2,
			Status:       store.ShipmentDelivered,
			LeadTimeDays: &lead3,
			TrackingID:   "TRK123456",
		},
		{
			ID:           2,
			Vendor:       "Meat Distributors Inc.",
			IngredientID: "braised_beef",
			Quantity:     40,
			ShippedDate:  now.AddDate(0, 0, -3),
			Status:       store.ShipmentInTransit,
			TrackingID:   "TRK789012",
		},
		{
			ID:           3,
			Vendor:       "Grain Suppliers",
			IngredientID: "rice",
			Quantity:     50,
			ShippedDate:  now.AddDate(0, 0, -10),
			ArrivedDate:  &arrived8,
			Status:       store.ShipmentDelayed,
			LeadTimeDays: &lead8,
			TrackingID:   "TRK345678",
		},
	}
	return Report{
		Shipments: shipments,
		Stats:     Summarize(shipments, a.policy),
		Source:    SourceSynthetic,
		Timestamp: now,
	}
}
