package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maishanyun/pantry/internal/forecast"
	"github.com/maishanyun/pantry/internal/store"
)

// ForecastOptions holds flags for the forecast command.
type ForecastOptions struct {
	*RootOptions
	Horizon int
	All     bool
}

// NewForecastCommand creates the forecast command.
func NewForecastCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ForecastOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "forecast [ingredient-id]",
		Short: "Forecast ingredient demand and reorder dates",
		Long: `Forecast daily demand for an ingredient over the given horizon, with the
recommended reorder date and quantity. With --all, forecasts every catalog
ingredient.

When no trained model or no usage history exists the forecast degrades to
deterministic synthetic values; the result is tagged with its source and
the reason for the fallback.

Example:
  pantry forecast braised_beef --db ./pantry.db
  pantry forecast --all --horizon 14 --db ./pantry.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.All && len(args) > 0 {
				return NewExitError(ExitCommandError, "cannot combine --all with an ingredient id")
			}
			if !opts.All && len(args) == 0 {
				return NewExitError(ExitCommandError, "an ingredient id or --all is required")
			}
			return runForecast(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Horizon, "horizon", 30, "forecast horizon in days")
	cmd.Flags().BoolVar(&opts.All, "all", false, "forecast every catalog ingredient")

	return cmd
}

func runForecast(opts *ForecastOptions, args []string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)
	formatter := newFormatter(cmd, opts.RootOptions)

	cfg, err := loadConfig(opts.RootOptions)
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

	orch := forecast.NewOrchestrator(cfg.Orchestrator(), st, slog.Default())
	ctx := cmd.Context()

	if opts.All {
		results, err := orch.BulkPredict(ctx, opts.Horizon)
		if err != nil {
			return WrapExitError(ExitFailure, "bulk forecast failed", err)
		}
		if formatter.JSON() {
			return formatter.Success(results)
		}
		var b strings.Builder
		for i, res := range results {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(renderForecast(res))
		}
		fmt.Fprint(formatter.Writer, b.String())
		return nil
	}

	res, err := orch.Predict(ctx, args[0], opts.Horizon)
	if err != nil {
		return WrapExitError(ExitFailure, "forecast failed", err)
	}
	if formatter.JSON() {
		return formatter.Success(res)
	}
	fmt.Fprint(formatter.Writer, renderForecast(res))
	return nil
}

func renderForecast(r forecast.ForecastResult) string {
	var b strings.Builder
	source := string(r.Source)
	if r.Reason != "" {
		source = fmt.Sprintf("%s, %s", r.Source, r.Reason)
	}
	fmt.Fprintf(&b, "Forecast for %s (%d days, source: %s)\n", r.IngredientID, r.Horizon, source)
	fmt.Fprintf(&b, "  Reorder date:     %s\n", r.ReorderDate.Format(store.DateLayout))
	fmt.Fprintf(&b, "  Reorder quantity: %.1f\n", r.ReorderQuantity)
	for _, p := range r.Forecast {
		fmt.Fprintf(&b, "  %s  %8.1f\n", p.Date.Format(store.DateLayout), p.PredictedDemand)
	}
	return b.String()
}
