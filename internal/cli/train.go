package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maishanyun/pantry/internal/forecast"
	"github.com/maishanyun/pantry/internal/store"
)

// TrainOptions holds flags for the train command.
type TrainOptions struct {
	*RootOptions
	Ingredient string
}

// NewTrainCommand creates the train command.
func NewTrainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the demand model from recorded usage history",
		Long: `Train the sequence model on daily usage history and persist the
resulting artifact. By default the model trains on aggregate daily demand;
pass --ingredient to train on one ingredient's recipe-weighted usage.

Too little history is reported as status insufficient_data, not a failure.

Example:
  pantry train --db ./pantry.db
  pantry train --db ./pantry.db --ingredient braised_beef`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ingredient, "ingredient", "", "train on one ingredient's usage")

	return cmd
}

func runTrain(opts *TrainOptions, cmd *cobra.Command) error {
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

	ctx := cmd.Context()
	var history []store.DailyUsage
	if opts.Ingredient != "" {
		history, err = st.IngredientDailyUsage(ctx, opts.Ingredient)
	} else {
		history, err = st.DailyUsageTotals(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read usage history", err)
	}
	formatter.VerboseLog("loaded %d days of history", len(history))

	pipeline := forecast.NewTrainingPipeline(cfg.Model, cfg.Training, cfg.ModelPath, slog.Default())
	report, err := pipeline.Train(ctx, history)
	if err != nil {
		if errors.Is(err, forecast.ErrTrainingInProgress) {
			return WrapExitError(ExitFailure, "training already in progress", err)
		}
		return WrapExitError(ExitFailure, "training failed", err)
	}

	if formatter.JSON() {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, renderTrainingReport(report))
	}
	if report.Status == forecast.TrainingError {
		return NewExitError(ExitFailure, report.Message)
	}
	return nil
}

func renderTrainingReport(r forecast.TrainingReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Training %s\n", r.Status)
	fmt.Fprintf(&b, "  Samples:    %d\n", r.Samples)
	fmt.Fprintf(&b, "  Epochs:     %d\n", r.Epochs)
	if r.Status == forecast.TrainingSuccess {
		fmt.Fprintf(&b, "  Final loss: %.6f\n", r.FinalLoss)
	}
	if r.Message != "" {
		fmt.Fprintf(&b, "  Message:    %s\n", r.Message)
	}
	return b.String()
}
