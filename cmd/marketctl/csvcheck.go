package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marketplace_admin/internal/service"
)

// ==================== csvcheck ====================

type csvCheckOptions struct {
	mapping service.BulkImportMapping
	verbose bool
	asJSON  bool
}

func newCSVCheckCmd() *cobra.Command {
	opts := &csvCheckOptions{}

	cmd := &cobra.Command{
		Use:   "csvcheck <file>",
		Short: "Dry-run a bulk product CSV against a column mapping",
		Long: `Runs the same parser the bulk import endpoint uses, without touching the database.

Example:
  marketctl csvcheck products.csv --map-name Title --map-price Price --map-stock Qty`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCSVCheck(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mapping.Name, "map-name", "name", "CSV header mapped to product name")
	f.StringVar(&opts.mapping.Price, "map-price", "price", "CSV header mapped to price")
	f.StringVar(&opts.mapping.Description, "map-description", "", "CSV header mapped to description")
	f.StringVar(&opts.mapping.StockQty, "map-stock", "", "CSV header mapped to stock quantity")
	f.StringVar(&opts.mapping.ImageURL, "map-image", "", "CSV header mapped to image URL")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print every accepted row")
	f.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func runCSVCheck(cmd *cobra.Command, path string, opts *csvCheckOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	result, err := service.ImportBulkProducts(string(data), opts.mapping)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "accepted: %d\n", len(result.Accepted))
	fmt.Fprintf(out, "skipped:  %d\n", result.SkippedRows)
	if result.Capped {
		fmt.Fprintf(out, "capped:   yes (max %d rows per file, remaining rows were not read)\n", service.MaxBulkImportRows)
	}
	if opts.verbose {
		for i, row := range result.Accepted {
			fmt.Fprintf(out, "%4d  %s  %-40s %.2f\n", i+1, row.Code, row.Name, row.Price)
		}
	}
	return nil
}
