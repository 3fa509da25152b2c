package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"tradeengine/types"
)

// writeTradesCSVFile writes trades to a CSV file at the given path.
func writeTradesCSVFile(path string, trades []types.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, trades)
}

// WriteTradesCSV writes trades to any io.Writer as CSV.
func WriteTradesCSV(w io.Writer, trades []types.TradeRecord) error {
	cw := csv.NewWriter(w)

	header := []string{
		"trade_id",
		"symbol",
		"entry_time", // RFC3339
		"exit_time",
		"entry_price",
		"exit_price",
		"quantity",
		"realized_pnl",
		"return_pct",
		"exit_reason",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		if err := writeTradeRow(cw, t); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeTradeRow(cw *csv.Writer, t types.TradeRecord) error {
	record := []string{
		t.ID,
		t.Symbol,
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		strconv.FormatInt(t.Quantity, 10),
		t.RealizedPnL.StringFixed(2),
		t.ReturnPct.StringFixed(6),
		string(t.ExitReason),
	}

	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
