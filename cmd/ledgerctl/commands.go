package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"inventory-ledger/internal/ledger"
	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List and change products",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := cli.inventory.ViewProducts(cmd.Context(), cli.session)
		if err != nil {
			return err
		}
		return printProducts(cmd.OutOrStdout(), products)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [category]",
	Short: "Find products by category (case-insensitive substring)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := ""
		if len(args) == 1 {
			category = args[0]
		}
		products, err := cli.inventory.SearchByCategory(cmd.Context(), cli.session, category)
		if err != nil {
			return err
		}
		return printProducts(cmd.OutOrStdout(), products)
	},
}

var lowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List products at or below a stock threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, _ := cmd.Flags().GetInt("threshold")
		if !cmd.Flags().Changed("threshold") {
			threshold = cli.cfg.Business.LowStockThreshold
		}
		products, err := cli.inventory.LowStock(cmd.Context(), cli.session, threshold)
		if err != nil {
			return err
		}
		return printProducts(cmd.OutOrStdout(), products)
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort <name|price|category|stock> [asc|desc]",
	Short: "List products sorted by a column",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		order := ledger.OrderAsc
		if len(args) == 2 {
			order = args[1]
		}
		products, err := cli.inventory.SortProducts(cmd.Context(), cli.session, args[0], order)
		if err != nil {
			return err
		}
		return printProducts(cmd.OutOrStdout(), products)
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name> <price> <category> <stock>",
	Short: "Add a product (admin)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseProduct(args)
		if err != nil {
			return err
		}
		if _, err := cli.inventory.AddProduct(cmd.Context(), cli.session, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product '%s' added\n", p.Name)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <name> <price> <category> <stock>",
	Short: "Replace every field of a product (admin)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseProduct(args)
		if err != nil {
			return err
		}
		if _, err := cli.inventory.UpdateProduct(cmd.Context(), cli.session, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product '%s' updated\n", p.Name)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a product (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.inventory.DeleteProduct(cmd.Context(), cli.session, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product '%s' deleted\n", args[0])
		return nil
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell <product> <quantity>",
	Short: "Record a sale",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		receipt, err := cli.inventory.Sell(cmd.Context(), cli.session, args[0], qty)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), receipt)
		}
		fmt.Fprintln(cmd.OutOrStdout(), receipt.Message())
		return nil
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Show the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, err := cli.inventory.ViewTransactions(cmd.Context(), cli.session)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), txs)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tACTION\tPRODUCT\tQUANTITY\tUSER\tTIMESTAMP")
		for _, tx := range txs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
				tx.ID, tx.Action, tx.ProductName, tx.Quantity, tx.User, models.FormatTimestamp(tx.Timestamp))
		}
		return tw.Flush()
	},
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Show the sales ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		sales, err := cli.inventory.ViewSales(cmd.Context(), cli.session)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), sales)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPRODUCT\tQUANTITY\tTIMESTAMP")
		for _, s := range sales {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", s.ID, s.ProductName, s.Quantity, models.FormatTimestamp(s.Timestamp))
		}
		return tw.Flush()
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast <product>",
	Short: "Project monthly sales for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, _ := cmd.Flags().GetInt("periods")
		if !cmd.Flags().Changed("periods") {
			periods = cli.cfg.Business.ForecastPeriods
		}
		chart, _ := cmd.Flags().GetString("chart")

		if chart != "" {
			f, err := os.Create(chart)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := cli.forecasts.RenderChart(cmd.Context(), cli.session, f, args[0], periods); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chart)
			return nil
		}

		fc, err := cli.forecasts.Predict(cmd.Context(), cli.session, args[0], periods)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), fc)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MONTH\tPREDICTED")
		for _, p := range fc.Predictions {
			fmt.Fprintf(tw, "%s\t%.2f\n", p.Date.Format("2006-01-02"), p.Quantity)
		}
		return tw.Flush()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <csv|pdf> <file>",
	Short: "Export the inventory as CSV or as a PDF report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		switch args[0] {
		case "csv":
			err = cli.reports.ExportInventoryCSV(cmd.Context(), cli.session, f)
		case "pdf":
			err = cli.reports.ExportInventoryPDF(cmd.Context(), cli.session, f)
		default:
			err = fmt.Errorf("unknown export format %q", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inventory exported to %s\n", args[1])
		return nil
	},
}

func init() {
	lowStockCmd.Flags().Int("threshold", 10, "stock threshold")
	forecastCmd.Flags().Int("periods", 12, "months to project")
	forecastCmd.Flags().String("chart", "", "write the forecast chart PDF to this file")

	productsCmd.AddCommand(searchCmd, lowStockCmd, sortCmd, addCmd, updateCmd, deleteCmd)
}

func parseProduct(args []string) (models.Product, error) {
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid price %q", args[1])
	}
	stock, err := strconv.Atoi(args[3])
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid stock %q", args[3])
	}
	return models.Product{Name: args[0], Price: price, Category: args[2], Stock: stock}, nil
}

func printProducts(w io.Writer, products []models.Product) error {
	if flagJSON {
		return writeJSON(w, products)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tPRICE\tCATEGORY\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t$%s\t%s\t%d\n", p.Name, p.Price.StringFixed(2), p.Category, p.Stock)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
