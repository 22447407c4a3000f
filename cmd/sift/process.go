package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siftd/sift/internal/cli"
	"github.com/siftd/sift/internal/engine"
	"github.com/siftd/sift/internal/match"
	"github.com/siftd/sift/internal/validate"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Classify and validate a batch of transactions",
		Long: `Classify every transaction in the input file and run the tiered
validation pipeline over the classified batch.

Examples:
  sift process --input transactions.csv
  sift process --input transactions.csv --workers 8
  sift process --input transactions.csv --show-flags`,
		RunE: runProcess,
	}

	cmd.Flags().StringP("input", "i", "", "CSV file of normalized transactions (required)")
	cmd.Flags().Int("workers", 4, "Concurrent workers for the batch")
	cmd.Flags().Bool("show-flags", false, "Print every validation flag, not just the summary")

	_ = cmd.MarkFlagRequired("input")
	_ = viper.BindPFlag("process.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	input, _ := cmd.Flags().GetString("input")
	showFlags, _ := cmd.Flags().GetBool("show-flags")

	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	txns, err := loadTransactionsCSV(expandPath(input))
	if err != nil {
		return err
	}
	slog.Info("Loaded transactions", "count", len(txns), "file", input)

	bar := progressbar.NewOptions(len(txns)*2,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Processing transactions..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	eng := engine.NewWithConfig(
		match.New(store),
		validate.New(store),
		engine.Config{
			Workers:    viper.GetInt("process.workers"),
			OnProgress: func(_, _ int) { _ = bar.Add(1) },
		},
	)

	results, summary, err := eng.Process(ctx, txns)
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	if showFlags {
		printFlags(cmd, results)
	} else {
		printUncategorized(cmd, results)
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary engine.Summary) {
	cmd.Println(cli.TitleStyle.Render("Classification"))
	cmd.Printf("  total:          %d\n", summary.Total)
	cmd.Printf("  categorized:    %s\n", cli.SuccessStyle.Render(fmt.Sprintf("%d", summary.Categorized)))
	cmd.Printf("  uncategorized:  %d\n", summary.Uncategorized)
	cmd.Printf("  avg confidence: %.1f%%\n", summary.AverageConfidence)

	for _, category := range sortedKeys(summary.ByCategory) {
		cmd.Printf("    %-24s %d\n", category, summary.ByCategory[category])
	}

	cmd.Println(cli.TitleStyle.Render("Validation"))
	cmd.Printf("  errors:   %s\n", cli.ErrorStyle.Render(fmt.Sprintf("%d", summary.Errors)))
	cmd.Printf("  warnings: %s\n", cli.WarningStyle.Render(fmt.Sprintf("%d", summary.Warnings)))
	for _, code := range sortedKeys(summary.FlagsByCode) {
		cmd.Printf("    %-24s %d\n", code, summary.FlagsByCode[code])
	}
}

func printFlags(cmd *cobra.Command, results []engine.Result) {
	for _, result := range results {
		for _, flag := range result.Flags {
			style := cli.SeverityStyle(string(flag.Severity))
			cmd.Printf("%s tier=%d %s: %s\n",
				style.Render(fmt.Sprintf("[%s]", flag.Severity)),
				flag.Tier,
				result.Transaction.Description,
				flag.Reason)
		}
	}
}

func printUncategorized(cmd *cobra.Command, results []engine.Result) {
	count := 0
	for _, result := range results {
		if !result.Classification.Categorized() {
			count++
		}
	}
	if count == 0 {
		return
	}
	cmd.Printf("%s\n", cli.SubtleStyle.Render(
		fmt.Sprintf("%d uncategorized transaction(s) - run 'sift learn --input <file>' to review them", count)))
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
