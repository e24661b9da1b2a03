package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/pn-weights/internal/config"
	"github.com/sells-group/pn-weights/internal/output"
	"github.com/sells-group/pn-weights/internal/pipeline"
)

var blocksOut string

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the census blocks mostly inside the PN",
	Long: `Runs only the spatial filter and writes the kept blocks with their total
area, area inside the PN and ratio as CSV, to --out or stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(config.ModeBlocks); err != nil {
			return err
		}
		// The filter needs no census profile.
		c := *cfg
		c.Census.Profile = ""
		opts, err := pipeline.OptionsFromConfig(&c)
		if err != nil {
			return err
		}

		spatial, err := pipeline.New(newFetcher(cfg), "").FilterBlocks(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "blocks")
		}

		if blocksOut == "" {
			return output.WriteBlocksCSV(cmd.OutOrStdout(), spatial.Blocks)
		}
		if err := output.WriteBlocksFile(blocksOut, spatial.Blocks); err != nil {
			return err
		}
		zap.L().Info("blocks written", zap.String("path", blocksOut), zap.Int("blocks", len(spatial.Blocks)))

		pr := message.NewPrinter(language.English)
		_, _ = pr.Fprintf(cmd.OutOrStdout(), "%d of %d blocks kept (%d overlap the PN), written to %s\n",
			spatial.Stats.Kept, spatial.Stats.Blocks, spatial.Stats.Candidates, blocksOut)
		return nil
	},
}

func init() {
	addGeometryFlags(blocksCmd.Flags())
	blocksCmd.Flags().StringVar(&blocksOut, "out", "", "CSV file to write; empty writes to stdout")
	rootCmd.AddCommand(blocksCmd)
}
