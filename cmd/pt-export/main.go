// pt-export writes the trade journal and account value history into an
// Excel workbook for offline analysis.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/store"
	"github.com/powertrader/powertrader/pkg/types"
	"github.com/xuri/excelize/v2"
)

const (
	tradesSheet  = "Trades"
	accountSheet = "Account Value"
)

func main() {
	var (
		baseDir = flag.String("base-dir", ".", "Base directory holding hub_data")
		outPath = flag.String("out", "", "Output .xlsx path (default hub_data/powertrader_export_<date>.xlsx)")
	)
	flag.Parse()

	hub := paths.HubDir(*baseDir)
	path := *outPath
	if path == "" {
		path = filepath.Join(hub, fmt.Sprintf("powertrader_export_%s.xlsx", time.Now().Format("20060102")))
	}

	if err := export(hub, path); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Printf("Exported to %s\n", path)
}

func export(hubDir, outPath string) error {
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(accountSheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := writeTradesSheet(fx, hubDir, headerStyle); err != nil {
		return err
	}
	if err := writeAccountSheet(fx, hubDir, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(outPath)
}

func writeTradesSheet(fx *excelize.File, hubDir string, headerStyle int) error {
	headers := []interface{}{"Time", "Coin", "Side", "Reason", "Quantity", "Price", "Value", "PnL %", "Fees USD", "Order ID"}
	if err := fx.SetSheetRow(tradesSheet, "A1", &headers); err != nil {
		return err
	}
	fx.SetCellStyle(tradesSheet, "A1", "J1", headerStyle)

	records := store.ScanJSONL(filepath.Join(hubDir, paths.TradeHistoryFilename))
	for i, rec := range records {
		trade := types.TradeFromRecord(rec)
		row := []interface{}{
			time.Unix(int64(trade.Timestamp), 0).Format("2006-01-02 15:04:05"),
			trade.Coin,
			trade.Side,
			trade.Reason,
			trade.Quantity,
			trade.Price,
			trade.Value,
			optCell(trade.PnlPct),
			optCell(trade.FeesUSD),
			trade.OrderID,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(tradesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeAccountSheet(fx *excelize.File, hubDir string, headerStyle int) error {
	headers := []interface{}{"Time", "Account Value USD"}
	if err := fx.SetSheetRow(accountSheet, "A1", &headers); err != nil {
		return err
	}
	fx.SetCellStyle(accountSheet, "A1", "B1", headerStyle)

	records := store.ScanJSONL(filepath.Join(hubDir, paths.AccountHistoryFilename))
	for i, rec := range records {
		ts, _ := rec["timestamp"].(float64)
		value, _ := rec["value"].(float64)
		row := []interface{}{
			time.Unix(int64(ts), 0).Format("2006-01-02 15:04:05"),
			value,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(accountSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func optCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
