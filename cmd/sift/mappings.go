package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/cli"
	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/rules"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage learned merchant mappings",
	}
	cmd.AddCommand(mappingsListCmd())
	cmd.AddCommand(mappingsDeleteCmd())
	return cmd
}

func mappingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned merchant mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			mappings, err := db.ListMappings(ctx)
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				cmd.Println(cli.SubtleStyle.Render("No learned mappings yet"))
				return nil
			}

			cmd.Println(cli.TitleStyle.Render("Learned mappings"))
			for _, mapping := range mappings {
				cmd.Printf("  %-32s %s %s\n",
					mapping.Merchant,
					mapping.Category,
					cli.SubtleStyle.Render(mapping.LastUpdated.Format("2006-01-02")))
			}
			return nil
		},
	}
}

func mappingsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [merchant]",
		Short: "Delete a learned merchant mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if err := db.DeleteMapping(ctx, rules.Key(args[0])); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(
						fmt.Sprintf("no learned mapping for %q", args[0]), nil)
				}
				return err
			}
			cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf("Deleted mapping for %q", args[0])))
			return nil
		},
	}
}
