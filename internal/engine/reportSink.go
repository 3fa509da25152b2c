package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"tradeengine/types"
)

// FileReportSink writes each daily report as JSON, plus a trades CSV when
// printTrades is set, under the configured directory.
type FileReportSink struct {
	cfg *ReportingConfig
}

func NewFileReportSink(cfg *ReportingConfig) *FileReportSink {
	return &FileReportSink{cfg: cfg}
}

func (s *FileReportSink) WriteReport(_ context.Context, report types.DailyReport, trades []types.TradeRecord) error {
	if err := os.MkdirAll(s.cfg.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	stamp := strings.ReplaceAll(report.Date, "-", "")

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.cfg.dir, "report_"+stamp+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if s.cfg.printTrades {
		if err := writeTradesCSVFile(filepath.Join(s.cfg.dir, "trades_"+stamp+".csv"), trades); err != nil {
			return err
		}
	}
	return nil
}
