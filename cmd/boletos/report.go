package main

import (
	"os"

	"github.com/mmdatafocus/boletos_backend/models/reports"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	reportPayer  string
	reportLot    int
	reportMin    string
	reportMax    string
	reportFormat string
	reportOut    string
)

func reportFilter(cmd *cobra.Command) (reports.BillingFilter, error) {
	var filter reports.BillingFilter
	if reportPayer != "" {
		filter.PayerName = &reportPayer
	}
	if cmd.Flags().Changed("lote") {
		filter.LotId = &reportLot
	}
	amount := func(s string) (*decimal.Decimal, error) {
		if s == "" {
			return nil, nil
		}
		d, err := utils.ParseCommaDecimal(s)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	var err error
	if filter.MinAmount, err = amount(reportMin); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = amount(reportMax); err != nil {
		return filter, err
	}
	return filter, nil
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List active billing records, optionally rendered as pdf or xlsx",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := reportFilter(cmd)
		if err != nil {
			return err
		}
		format, err := reports.ParseReportFormat(reportFormat)
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		report, err := reports.GetBillingReport(commandContext(cmd), db, filter, format, settings)
		if err != nil {
			return err
		}
		if reportOut != "" && len(report.Document) > 0 {
			if err := os.WriteFile(reportOut, report.Document, 0o644); err != nil {
				return utils.IOError("write report", err)
			}
			return printJSON(cmd, map[string]any{"total": report.Total, "formato": report.Format, "arquivo": reportOut})
		}
		return printJSON(cmd, report)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Totals and per-lot averages of the active billing records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		stats, err := reports.GetBillingStatistics(commandContext(cmd), db)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportPayer, "nome", "", "payer name substring")
	reportCmd.Flags().IntVar(&reportLot, "lote", 0, "lot id")
	reportCmd.Flags().StringVar(&reportMin, "min", "", "minimum amount, inclusive")
	reportCmd.Flags().StringVar(&reportMax, "max", "", "maximum amount, inclusive")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "json, pdf or xlsx")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the rendered document to this file")
	rootCmd.AddCommand(reportCmd, statsCmd)
}
