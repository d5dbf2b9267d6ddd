package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"yfinance-go/src/data_source/yahoo"
	"yfinance-go/src/extract"
	"yfinance-go/src/helpers"
	"yfinance-go/src/network"
)

var (
	fetchDays     int
	fetchInterval string
	fetchDate     string
)

func init() {
	fetchCmd.Flags().IntVar(&fetchDays, "days", yahoo.DefaultHistoryDays, "history window in days (history, price_history)")
	fetchCmd.Flags().StringVar(&fetchInterval, "interval", yahoo.DefaultHistoryInterval, "bar interval (history, price_history)")
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "expiry timestamp (options)")
	rootCmd.AddCommand(fetchCmd, datasetsCmd)
}

// -----------------------------------------------------------------------------

var fetchCmd = &cobra.Command{
	Use:   "fetch <symbol> <dataset>",
	Short: "Fetches one dataset for one symbol and prints it as JSON.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		network.Initialize()
		defer network.Cleanup()

		symbol, name := args[0], args[1]
		d, ok := yahoo.LookupDataset(name)
		if !ok {
			return fmt.Errorf("unknown dataset %q, see 'yfinance datasets'", name)
		}

		ticker, err := yahoo.NewTickerFromConfig(symbol, cfg.MConfig)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var node extract.Node
		switch {
		case d.Name == "history":
			node, err = ticker.History(ctx, fetchDays, fetchInterval, true)
		case d.Name == "price_history":
			prices, perr := ticker.PriceHistory(ctx, fetchDays, fetchInterval)
			node, err = extract.NewNode(prices), perr
		case d.Name == "options" && fetchDate != "":
			node, err = ticker.OptionsForDate(ctx, fetchDate)
		default:
			node, err = d.Fetch(ctx, ticker)
		}
		if err != nil {
			return fmt.Errorf("%w [%s]", err, helpers.Kind(err))
		}

		raw, err := node.MarshalJSON()
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return err
		}
		out.WriteByte('\n')
		_, err = out.WriteTo(cmd.OutOrStdout())
		return err
	},
}

// -----------------------------------------------------------------------------

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Lists the dataset names accepted by fetch and the poller.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range yahoo.DatasetNames() {
			d, _ := yahoo.LookupDataset(name)
			fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Description)
		}
		w.Flush()
	},
}
