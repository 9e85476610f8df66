package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/maishanyun/pantry/internal/demo"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Days int
	Seed int64
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a deterministic sample dataset",
		Long: `Seed the database with a deterministic sample dataset: the ingredient
catalog, recipes, daily usage and sales history, purchases and shipments.
The same seed always produces the same rows.

Example:
  pantry seed --db ./pantry.db
  pantry seed --db ./pantry.db --days 120 --seed 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 90, "days of usage history to generate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "random seed")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
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

	sum, err := demo.Seed(cmd.Context(), st, demo.Config{
		Seed: opts.Seed,
		Days: opts.Days,
		Now:  time.Now(),
	})
	if err != nil {
		return WrapExitError(ExitFailure, "seeding failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(sum)
	}
	fmt.Fprintf(formatter.Writer,
		"Seeded %d ingredients, %d recipe lines, %d usage rows, %d sales, %d purchases, %d shipments\n",
		sum.Ingredients, sum.RecipeLines, sum.Usage, sum.Sales, sum.Purchases, sum.Shipments)
	return nil
}
