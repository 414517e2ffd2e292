// pt-status renders a terminal snapshot of the system: trainer state,
// open positions, account value and recent trades, read from the same
// files the processes communicate through.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/store"
	"github.com/powertrader/powertrader/internal/trainer"
	"github.com/powertrader/powertrader/pkg/types"
)

func main() {
	var (
		baseDir = flag.String("base-dir", ".", "Base directory holding coin folders and hub_data")
		trades  = flag.Int("trades", 10, "Number of recent trades to show")
	)
	flag.Parse()

	printTrainerStatus(*baseDir)
	printPositions(*baseDir)
	printRecentTrades(*baseDir, *trades)
}

func printTrainerStatus(baseDir string) {
	var status trainer.Status
	if err := store.ReadJSON(filepath.Join(baseDir, paths.TrainerStatusFilename), &status); err != nil {
		fmt.Println("Trainer: no status file")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRAINER")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"State", status.State},
		{"Coin", orDash(status.Coin)},
		{"Timeframe", orDash(status.Timeframe)},
		{"Updated", time.Unix(status.Timestamp, 0).Format("2006-01-02 15:04:05")},
	})
	if last := trainer.LastTrainingTime(baseDir); !last.IsZero() {
		t.AppendRow(table.Row{"Last completed", last.Format("2006-01-02 15:04:05")})
	}
	t.Render()
	fmt.Println()
}

func printPositions(baseDir string) {
	var status struct {
		AccountValue float64                           `json:"account_value"`
		Positions    map[string]map[string]interface{} `json:"positions"`
		Timestamp    float64                           `json:"timestamp"`
	}
	path := filepath.Join(paths.HubDir(baseDir), paths.TraderStatusFilename)
	if err := store.ReadJSON(path, &status); err != nil {
		fmt.Println("Trader: no status file")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("POSITIONS - account $%.2f", status.AccountValue))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Coin", "Qty", "Avg", "Price", "PnL %", "Value", "DCA", "Trail"})

	coins := make([]string, 0, len(status.Positions))
	for coin := range status.Positions {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	for _, coin := range coins {
		pos := status.Positions[coin]
		trail := "-"
		if active, _ := pos["trail_active"].(bool); active {
			trail = fmt.Sprintf("%.4f", num(pos["trail_line"]))
		}
		t.AppendRow(table.Row{
			coin,
			fmt.Sprintf("%.8f", num(pos["quantity"])),
			fmt.Sprintf("%.4f", num(pos["avg_price"])),
			fmt.Sprintf("%.4f", num(pos["current_price"])),
			fmt.Sprintf("%+.2f", num(pos["pnl_pct"])),
			fmt.Sprintf("%.2f", num(pos["market_value"])),
			int(num(pos["dca_count"])),
			trail,
		})
	}
	if len(coins) == 0 {
		t.AppendRow(table.Row{"(none)", "", "", "", "", "", "", ""})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()
}

func printRecentTrades(baseDir string, limit int) {
	records := store.ScanJSONL(filepath.Join(paths.HubDir(baseDir), paths.TradeHistoryFilename))
	if len(records) == 0 {
		fmt.Println("Trades: none recorded")
		return
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RECENT TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Coin", "Side", "Reason", "Qty", "Price", "PnL %"})

	for _, rec := range records {
		trade := types.TradeFromRecord(rec)
		pnl := ""
		if trade.PnlPct != nil {
			pnl = fmt.Sprintf("%+.2f", *trade.PnlPct)
		}
		t.AppendRow(table.Row{
			time.Unix(int64(trade.Timestamp), 0).Format("01-02 15:04"),
			trade.Coin,
			trade.Side,
			trade.Reason,
			fmt.Sprintf("%.8f", trade.Quantity),
			fmt.Sprintf("%.4f", trade.Price),
			pnl,
		})
	}
	t.Render()
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
