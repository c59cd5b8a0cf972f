package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"spx-backtester/internal/models"
)

// writeTradesCSV exports trades with one row per leg.
func writeTradesCSV(path string, trades []*models.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"trade_id", "type", "entry_time", "exit_time", "status",
		"contract", "role", "position", "entry_price", "exit_price",
		"remaining", "partial_exits", "trade_pnl", "trade_pnl_gross",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		// Map iteration order is random; keep the file stable.
		contracts := make([]string, 0, len(t.Legs))
		for c := range t.Legs {
			contracts = append(contracts, c)
		}
		sort.Strings(contracts)

		exitTime := ""
		if !t.ExitTime.IsZero() {
			exitTime = t.ExitTime.Format("2006-01-02 15:04:05")
		}

		for _, contract := range contracts {
			leg := t.Legs[contract]
			row := []string{
				t.ID,
				string(t.Type),
				t.EntryTime.Format("2006-01-02 15:04:05"),
				exitTime,
				string(t.Status),
				contract,
				string(leg.Role),
				fmt.Sprintf("%d", leg.Position),
				fmt.Sprintf("%.2f", leg.EntryPrice),
				fmt.Sprintf("%.2f", leg.ExitPrice),
				fmt.Sprintf("%d", leg.RemainingPosition),
				fmt.Sprintf("%d", len(leg.PartialExits)),
				fmt.Sprintf("%.2f", t.PnL),
				fmt.Sprintf("%.2f", t.PnLGross),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}
