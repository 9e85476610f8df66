package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maishanyun/pantry/internal/shipment"
	"github.com/maishanyun/pantry/internal/store"
)

// NewShipmentsCommand creates the shipments command.
func NewShipmentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipments",
		Short: "Summarize vendor shipments and lead times",
		Long: `Report the most recent vendor shipments with delay statistics: delayed
count, on-time count and average lead time.

Example:
  pantry shipments --db ./pantry.db
  pantry shipments --db ./pantry.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShipments(rootOpts, cmd)
		},
	}
	return cmd
}

func runShipments(opts *RootOptions, cmd *cobra.Command) error {
	setupLogging(opts)
	formatter := newFormatter(cmd, opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	analytics := shipment.NewAnalytics(st, cfg.ShipmentPolicy(), slog.Default(), nil)
	report, err := analytics.Summary(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "shipment summary failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(report)
	}
	fmt.Fprint(formatter.Writer, renderShipments(report))
	return nil
}

func renderShipments(r shipment.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shipments (source: %s)\n", r.Source)
	fmt.Fprintf(&b, "  %-24s %-16s %8s  %-10s  %-10s  %s\n",
		"Vendor", "Ingredient", "Qty", "Shipped", "Status", "Lead")
	for _, s := range r.Shipments {
		lead := "-"
		if s.LeadTimeDays != nil {
			lead = fmt.Sprintf("%dd", *s.LeadTimeDays)
		}
		fmt.Fprintf(&b, "  %-24s %-16s %8.1f  %-10s  %-10s  %s\n",
			s.Vendor, s.IngredientID, s.Quantity,
			s.ShippedDate.Format(store.DateLayout), s.Status, lead)
	}
	st := r.Stats
	fmt.Fprintf(&b, "Stats: total=%d delayed=%d on_time=%d avg_lead=%.2fd\n",
		st.Total, st.DelayedCount, st.OnTimeCount, st.AverageLeadTime)
	return b.String()
}
