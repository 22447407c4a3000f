package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/cli"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List configured categories and their rules",
		RunE:  runCategories,
	}
}

func runCategories(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	cmd.Println(cli.TitleStyle.Render("Categories"))
	for _, rule := range store.Categories() {
		cmd.Println(cli.BoldStyle.Render(rule.Name))
		if len(rule.Keywords) > 0 {
			cmd.Printf("  keywords:  %s\n", strings.Join(rule.Keywords, ", "))
		}
		if len(rule.Merchants) > 0 {
			cmd.Printf("  merchants: %s\n", strings.Join(rule.Merchants, ", "))
		}
		if threshold, ok := store.CategoryThreshold(rule.Name); ok {
			cmd.Printf("  %s\n", cli.SubtleStyle.Render(fmt.Sprintf(
				"threshold: %s to %s",
				threshold.MinAmount.StringFixed(2),
				threshold.MaxAmount.StringFixed(2))))
		}
	}
	return nil
}
