package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"food-ordering/internal/model"

	"github.com/spf13/cobra"
)

func newMenuCmd(e *env) *cobra.Command {
	var (
		params model.GetMenuParams
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List menu items",
		Long: `Lists menu items, optionally restricted to a category ID and/or
items whose name matches a search term.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.catalogue()
			if err != nil {
				return err
			}

			items, err := svc.GetMenu(cmd.Context(), &params)
			if err != nil {
				return err
			}

			if asJSON {
				if items == nil {
					items = []model.MenuItem{}
				}
				return printJSON(cmd, items)
			}

			if len(items) == 0 {
				cmd.Println("No menu items found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tRATING\tCALORIES\tCATEGORY")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.1f\t%d\t%s\n",
					item.ID, item.Name, item.Price, item.Rating, item.Calories, item.Category)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&params.Category, "category", "c", "", "category ID")
	cmd.Flags().StringVarP(&params.Query, "query", "q", "", "search term matched against item names")
	cmd.Flags().IntVarP(&params.Limit, "limit", "n", 0, "maximum number of items (at most 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	return cmd
}

func newCategoriesCmd(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List menu categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.catalogue()
			if err != nil {
				return err
			}

			categories, err := svc.GetCategories(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				if categories == nil {
					categories = []model.Category{}
				}
				return printJSON(cmd, categories)
			}

			if len(categories) == 0 {
				cmd.Println("No categories found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
