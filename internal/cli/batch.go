package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many articles from a file in parallel",
	Long: `Batch verifies many articles concurrently:
- Read articles from the input file (one per line, '#' comments skipped)
- Verify the first claim of each article with a pool of workers
- Write one JSON report per article plus a summary

Example:
  claimcheck batch articles.txt
  claimcheck batch articles.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

// batchReport is the per-input file written by batch
type batchReport struct {
	Index   int    `json:"index"`
	Input   string `json:"input"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// batchSummary is written next to the per-input reports
type batchSummary struct {
	Total    int            `json:"total"`
	Outcomes map[string]int `json:"outcomes"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.BatchWorkers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewFromConfig(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Input file:  %s\n", file)
	fmt.Fprintf(errOut, "Workers:     %d\n", workers)
	fmt.Fprintf(errOut, "Output dir:  %s\n\n", outputDir)

	processor := worker.NewBatchProcessor(p, workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	summary, err := writeBatchReports(outputDir, results)
	if err != nil {
		return err
	}

	for _, res := range results {
		if res.Error != nil {
			fmt.Fprintf(errOut, "✗ #%d: %v\n", res.Index+1, res.Error)
			continue
		}
		fmt.Fprintf(errOut, "✓ #%d: %s (%s, %.2f/5)\n", res.Index+1, res.Result.Claim, res.Result.Stance, res.Result.FinalCredibility)
	}

	fmt.Fprintf(errOut, "\nTotal: %d", summary.Total)
	for _, outcome := range []string{"ok", "input_failure", "unexpected_failure", "cancelled"} {
		if n := summary.Outcomes[outcome]; n > 0 {
			fmt.Fprintf(errOut, "  %s: %d", outcome, n)
		}
	}
	fmt.Fprintln(errOut)
	return nil
}

// writeBatchReports writes NNNN.json per input and summary.json
func writeBatchReports(dir string, results []*worker.VerifyResult) (batchSummary, error) {
	r := pipeline.NewRenderer()
	summary := batchSummary{Total: len(results), Outcomes: make(map[string]int)}

	for _, res := range results {
		outcome := pipeline.Outcome(res.Error)
		summary.Outcomes[outcome]++

		report := batchReport{Index: res.Index, Input: res.Input, Outcome: outcome}
		if res.Error != nil {
			report.Error = res.Error.Error()
		} else {
			report.Result = res.Result
		}

		path := filepath.Join(dir, fmt.Sprintf("%04d.json", res.Index+1))
		if err := r.RenderJSON(report, path); err != nil {
			return summary, err
		}
	}

	if err := r.RenderJSON(summary, filepath.Join(dir, "summary.json")); err != nil {
		return summary, err
	}
	return summary, nil
}
