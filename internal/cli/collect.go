package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/maxent/internal/collect"
	"github.com/happyhackingspace/maxent/internal/storage"
	"github.com/spf13/cobra"
)

func (c *CLI) newCollectCommand() *cobra.Command {
	var seedFile, outputDir, userAgent string
	var timeout, delay time.Duration
	var maxPages int

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch labeled pages from a seed file into a document folder",
		Example: `  maxent collect --seed seeds.jsonl --output docs
  maxent collect --seed seeds.jsonl --output docs --delay 2s --max 500

  # seeds.jsonl
  {"url": "https://example.com/markets", "label": "finance"}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := collect.ReadSeeds(seedFile)
			if err != nil {
				return fmt.Errorf("load seeds: %w", err)
			}
			slog.Info("Loaded seeds", "count", len(seeds))

			col := collect.NewCollector(collect.NewHTTPClient(timeout))
			col.UserAgent = userAgent
			col.Delay = delay
			col.MaxPages = maxPages
			n, err := col.Collect(cmd.Context(), storage.NewStorage(outputDir), seeds)
			slog.Info("Collection complete", "collected", n, "folder", outputDir)
			return err
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "Seed file (JSON lines with url and label)")
	cmd.Flags().StringVar(&outputDir, "output", "data", "Document folder")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "Delay between requests")
	cmd.Flags().StringVar(&userAgent, "user-agent", "Mozilla/5.0 (compatible; maxent-collect/1.0)", "User-Agent header")
	cmd.Flags().IntVar(&maxPages, "max", 0, "Max pages to collect (0=unlimited)")
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}
