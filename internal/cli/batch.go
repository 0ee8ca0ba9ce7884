package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/record"
	"github.com/ppiankov/sentcheck/internal/score"
	"github.com/ppiankov/sentcheck/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	batchPolicy  string
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check many sentences from a file in parallel",
	Long: `Batch checks every sentence of a file concurrently:
- One sentence per line; blank lines and # comments are skipped
- A line may end with a tab and true or false to record your own judgement
- Results are written to queries.csv and tokens.csv in the output directory
- An agreement report compares verdicts with your judgements

Example:
  sentcheck batch sentences.txt
  sentcheck batch sentences.txt --concurrency 8 --output-dir ./out
  sentcheck batch labeled.tsv --policy strict`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVarP(&batchPolicy, "policy", "p", "", "strictness level: lenient, balanced, strict (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./sentcheck-records", "output directory for CSV records")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  sentcheck batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Parser:       %s (%s)\n", cfg.Parser.Backend, cfg.Parser.Model)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	queries, err := worker.ReadQueriesFromFile(file)
	if err != nil {
		return fmt.Errorf("read queries: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d sentences\n", len(queries))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	processor := worker.NewBatchProcessor(s.checker, cfg.Concurrency.Workers, s.store)
	results := processor.ProcessQueries(ctx, queries, batchPolicy)

	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Query.Text, result.Error)
			continue
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "  %-8s %s\n", verdictWord(result.Result.Valid), result.Query.Text)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch stopped early, %d of %d sentences failed: %w", failures, len(results), err)
	}

	if err := writeRecords(ctx, s.store, outputDir); err != nil {
		return err
	}

	stored, err := s.store.Queries(ctx)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	report := score.NewScorer().Calculate(stored)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Checked:   %d sentences\n", len(results))
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	printReport(cmd.OutOrStdout(), report)
	return nil
}

// writeRecords exports the store to queries.csv and tokens.csv in dir
func writeRecords(ctx context.Context, store record.Store, dir string) (err error) {
	qf, err := os.Create(filepath.Join(dir, "queries.csv"))
	if err != nil {
		return fmt.Errorf("create queries.csv: %w", err)
	}
	defer func() {
		if closeErr := qf.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close queries.csv: %w", closeErr)
		}
	}()

	tf, err := os.Create(filepath.Join(dir, "tokens.csv"))
	if err != nil {
		return fmt.Errorf("create tokens.csv: %w", err)
	}
	defer func() {
		if closeErr := tf.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close tokens.csv: %w", closeErr)
		}
	}()

	if err := record.Export(ctx, store, qf, tf); err != nil {
		return fmt.Errorf("export records: %w", err)
	}
	return nil
}

// printReport writes the agreement report in a short human-readable form
func printReport(w io.Writer, report model.AgreementReport) {
	fmt.Fprintf(w, "Recorded:   %d\n", report.Total)
	fmt.Fprintf(w, "Labeled:    %d\n", report.Labeled)
	if report.Labeled == 0 {
		fmt.Fprintf(w, "Overlap:    n/a (no labeled sentences)\n")
		return
	}
	fmt.Fprintf(w, "Overlap:    %.2f%% (%d/%d)\n", report.Overlap, report.Agreements, report.Labeled)
	c := report.Confusion
	fmt.Fprintf(w, "Confusion:  TP=%d FP=%d TN=%d FN=%d\n", c.TruePositive, c.FalsePositive, c.TrueNegative, c.FalseNegative)

	for _, name := range score.Policies(report) {
		r := report.ByPolicy[name]
		fmt.Fprintf(w, "  %-9s %.2f%% (%d/%d)\n", name, r.Overlap, r.Agreements, r.Labeled)
	}
}
