package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/cli"
	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/learn"
	"github.com/siftd/sift/internal/match"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/suggest"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn [merchant] [category]",
		Short: "Record merchant-to-category corrections",
		Long: `Record a human-confirmed merchant-to-category mapping. Learned mappings
outrank keyword and fuzzy rules for their merchant on every later run.

With --input, reviews the file's uncategorized transactions interactively,
showing ranked suggestions trained on the already-categorized ones.

Examples:
  sift learn "Netflix" Entertainment
  sift learn --input transactions.csv`,
		Args: cobra.MaximumNArgs(2),
		RunE: runLearn,
	}

	cmd.Flags().StringP("input", "i", "", "CSV file to review interactively")

	return cmd
}

func runLearn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	input, _ := cmd.Flags().GetString("input")

	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	learner := learn.New(store, db)

	if len(args) == 2 {
		if err := learner.RecordCorrection(ctx, args[0], args[1]); err != nil {
			return err
		}
		cmd.Println(cli.SuccessStyle.Render(
			fmt.Sprintf("Learned: %q -> %s", args[0], args[1])))
		return nil
	}
	if input == "" {
		return fmt.Errorf("provide a merchant and category, or --input for interactive review")
	}

	txns, err := loadTransactionsCSV(expandPath(input))
	if err != nil {
		return err
	}

	matcher := match.New(store)
	var review []model.Transaction
	var samples []suggest.Sample
	for _, txn := range txns {
		result := matcher.Classify(txn)
		if result.Categorized() {
			samples = append(samples, suggest.Sample{
				Description: txn.Description,
				Category:    result.Category,
			})
		} else {
			review = append(review, txn)
		}
	}
	if len(review) == 0 {
		cmd.Println(cli.SuccessStyle.Render("Nothing to review - every transaction is categorized"))
		return nil
	}

	suggester := suggest.NewSuggester(store.CategoryNames(), samples)
	prompter := cli.NewPrompter(os.Stdin, cmd.OutOrStdout())
	categories := store.CategoryNames()

	learned := 0
	for _, txn := range review {
		suggestions := suggester.Suggest(txn.Description, 3)
		category, err := prompter.ConfirmCategory(ctx, txn, suggestions, categories)
		if errors.Is(err, cli.ErrReviewDone) || errors.Is(err, cli.ErrInputCancelled) {
			break
		}
		if err != nil {
			return err
		}
		if category == "" {
			continue
		}

		merchant := txn.MerchantName
		if merchant == "" {
			merchant = match.NormalizeDescription(txn.Description)
		}
		if err := learner.RecordCorrection(ctx, merchant, category); err != nil {
			common.LogError(err, "Failed to record correction", common.Fields{"merchant": merchant})
			continue
		}
		learned++
	}

	cmd.Println(cli.SuccessStyle.Render(
		fmt.Sprintf("Recorded %d correction(s)", learned)))
	return nil
}
