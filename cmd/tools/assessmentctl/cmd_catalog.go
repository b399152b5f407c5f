package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"assessment-pipeline/pkg/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect question catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a catalog file and summarise its themes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadCatalog(args[0])
			if err != nil {
				return fmt.Errorf("catalog %s: %w", args[0], err)
			}
			printCatalogSummary(cmd, cat)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the built-in catalog summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printCatalogSummary(cmd, catalog.Default())
			return nil
		},
	})
	return cmd
}

func printCatalogSummary(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog %q version %s: %d questions\n", cat.Title, cat.Version, cat.Len())

	counts := make(map[string]int)
	for _, q := range cat.Questions {
		counts[q.Theme]++
	}
	themes := cat.Themes()
	rows := make([][]string, 0, len(themes))
	for _, theme := range themes {
		rows = append(rows, []string{theme, strconv.Itoa(counts[theme])})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Theme", "Questions"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
}
