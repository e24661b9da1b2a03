package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/pn-weights/internal/config"
	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/output"
	"github.com/sells-group/pn-weights/internal/pipeline"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Compute tract weights for the configured PN",
	Long: `Runs the full pipeline: selects the census blocks mostly inside the PN,
loads block-level counts from the Census API, and writes one row per tract
containing a PN block with the share of its counts inside the PN.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(config.ModeWeights); err != nil {
			return err
		}
		opts, err := pipeline.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		format, err := output.ParseFormat(cfg.Output.Format)
		if err != nil {
			return err
		}

		p := pipeline.New(newFetcher(cfg), cfg.Census.APIKey)
		res, err := p.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "weights")
		}

		w, err := output.New(ctx, output.Options{
			Format:      format,
			Path:        cfg.Output.Path,
			DatabaseURL: cfg.Output.DatabaseURL,
			NaNValue:    cfg.Output.NaNValue,
		})
		if err != nil {
			return err
		}
		defer w.Close() //nolint:errcheck

		if err := w.Write(ctx, res); err != nil {
			return eris.Wrap(err, "weights: write output")
		}

		dest := cfg.Output.Path
		if format == output.FormatPostgres {
			dest = "postgres"
		}
		zap.L().Info("weights written",
			zap.String("run_id", res.RunID),
			zap.String("format", string(format)),
			zap.String("destination", dest),
		)
		printSummary(cmd.OutOrStdout(), res, dest)
		return nil
	},
}

func init() {
	addGeometryFlags(weightsCmd.Flags())
	weightsCmd.Flags().String("profile", "", "census profile name or YAML path (overrides census.profile)")
	weightsCmd.Flags().String("format", "", "output format: csv, xlsx, sqlite or postgres (overrides output.format)")
	weightsCmd.Flags().String("out", "", "output file or SQLite DSN (overrides output.path)")
	weightsCmd.Flags().String("output-url", "", "PostgreSQL URL for postgres output (overrides output.database_url)")
	rootCmd.AddCommand(weightsCmd)
}

// printSummary writes a short human-readable account of a run.
func printSummary(out io.Writer, res *model.RunResult, dest string) {
	pr := message.NewPrinter(language.English)
	undefined := 0
	for _, r := range res.Table.Rows {
		if !r.Defined() {
			undefined++
		}
	}
	_, _ = pr.Fprintf(out, "run %s (%s, profile %s)\n", res.RunID, res.Jurisdiction, res.Profile)
	_, _ = pr.Fprintf(out, "  PN blocks:        %d\n", len(res.Blocks))
	_, _ = pr.Fprintf(out, "  census records:   %d (%d in PN tracts, %d in PN blocks)\n",
		res.Join.Records, res.Join.Kept, res.Join.InPN)
	_, _ = pr.Fprintf(out, "  tracts:           %d (%d undefined)\n", len(res.Table.Rows), undefined)
	if n := len(res.Join.UnmatchedBlocks); n > 0 {
		_, _ = pr.Fprintf(out, "  unmatched blocks: %d\n", n)
	}
	_, _ = pr.Fprintf(out, "  written to:       %s\n", dest)
}
