package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maishanyun/pantry/internal/inventory"
)

// NewInventoryCommand creates the inventory command.
func NewInventoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Classify current stock levels against replenishment thresholds",
		Long: `Report current stock for every catalog ingredient, classified against its
reorder point, safety stock and par level, with aggregate KPIs.

Example:
  pantry inventory --db ./pantry.db
  pantry inventory --db ./pantry.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventory(rootOpts, cmd)
		},
	}
	return cmd
}

func runInventory(opts *RootOptions, cmd *cobra.Command) error {
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

	classifier := inventory.NewClassifier(st, slog.Default(), nil)
	report, err := classifier.Levels(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "inventory report failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(report)
	}
	fmt.Fprint(formatter.Writer, renderInventory(report))
	return nil
}

func renderInventory(r inventory.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inventory (source: %s)\n", r.Source)
	fmt.Fprintf(&b, "  %-18s %-20s %10s %10s  %s\n", "ID", "Name", "Stock", "Reorder", "Status")
	for _, it := range r.Ingredients {
		fmt.Fprintf(&b, "  %-18s %-20s %10.1f %10.1f  %s\n",
			it.IngredientID, it.IngredientName, it.CurrentStock, it.ReorderPoint, it.Status)
	}
	k := r.KPIs
	fmt.Fprintf(&b, "KPIs: total=%d low_stock=%d overstocked=%d adequate=%d low_stock_pct=%.1f%%\n",
		k.TotalIngredients, k.LowStockCount, k.OverstockedCount, k.AdequateCount, k.LowStockPercentage)
	return b.String()
}
