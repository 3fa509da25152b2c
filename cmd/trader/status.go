package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/spf13/cobra"
)

var errNoStore = errors.New("no state store configured (storage.driver is none)")

func statusCmd() *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the saved portfolio and the most recent trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				return errNoStore
			}
			state, err := a.loadState(ctx, store)
			if err != nil {
				return err
			}
			if state == nil {
				fmt.Println("No saved state yet.")
				return nil
			}

			v := engine.Value(*state, engine.LastKnownPrices(*state))
			st := engine.Status(*state, v, time.Now())
			st.Phase = "SAVED"
			printStatus(os.Stdout, st, engine.RecentTrades(state.Trades, last))
			return nil
		},
	}
	cmd.Flags().IntVarP(&last, "trades", "n", 5, "Number of recent trades to show")
	return cmd
}

func printStatus(out io.Writer, st types.StatusSnapshot, trades []types.TradeRecord) {
	fmt.Fprintln(out, "===== Portfolio Status =====")
	fmt.Fprintf(out, "As of:          %s (%s)\n", st.Time.Format(time.RFC3339), st.Phase)
	fmt.Fprintf(out, "Total Value:    %s\n", st.TotalEquity.StringFixed(2))
	fmt.Fprintf(out, "Cash:           %s\n", st.Cash.StringFixed(2))
	fmt.Fprintf(out, "Unrealized P&L: %s\n", st.UnrealizedPnL.StringFixed(2))
	fmt.Fprintf(out, "Daily P&L:      %s\n", st.DailyPnL.StringFixed(2))
	fmt.Fprintf(out, "Return:         %s%%\n", st.ReturnPct.Shift(2).StringFixed(2))
	fmt.Fprintf(out, "Drawdown:       %s%%\n", st.DrawdownPct.Shift(2).StringFixed(2))
	fmt.Fprintf(out, "Win Rate:       %s%% of %d trades\n", st.WinRate.Shift(2).StringFixed(1), st.ClosedTrades)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if len(st.Positions) > 0 {
		fmt.Fprintln(out, "\n-- Open Positions --")
		fmt.Fprintln(w, "SYMBOL\tQTY\tENTRY\tLAST\tSTOP\tTARGET\tP&L")
		for _, p := range st.Positions {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
				p.Symbol, p.Quantity,
				p.AvgEntryPrice.StringFixed(2), p.LastPrice.StringFixed(2),
				p.StopLoss.StringFixed(2), p.TakeProfit.StringFixed(2),
				p.UnrealizedPnL.StringFixed(2))
		}
		_ = w.Flush()
	}
	if len(trades) > 0 {
		fmt.Fprintln(out, "\n-- Recent Trades --")
		fmt.Fprintln(w, "EXIT\tSYMBOL\tQTY\tENTRY\tEXIT PRICE\tP&L\tREASON")
		for _, t := range trades {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				t.ExitTime.Format("2006-01-02 15:04"), t.Symbol, t.Quantity,
				t.EntryPrice.StringFixed(2), t.ExitPrice.StringFixed(2),
				t.RealizedPnL.StringFixed(2), t.ExitReason)
		}
		_ = w.Flush()
	}
	fmt.Fprintln(out, "============================")
}
