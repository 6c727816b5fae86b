package main

import (
	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/spf13/cobra"
)

var archiveSource bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the lotes, mapeamento_lotes and boletos tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		return printJSON(cmd, map[string]bool{"migrated": true})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Import billing records, resolving each unit through the lot mappings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		outcome, err := models.ImportBillingCSV(commandContext(cmd), db, args[0], settings)
		if err != nil {
			return err
		}
		return printJSON(cmd, outcome)
	},
}

type splitResponse struct {
	*models.SplitOutcome
	Archived string `json:"arquivado,omitempty"`
}

var splitCmd = &cobra.Command{
	Use:   "split <pdf>",
	Short: "Split the source PDF into one document per active billing record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		db, err := connect()
		if err != nil {
			return err
		}
		outcome, err := models.SplitBillingDocument(ctx, db, args[0], settings)
		if err != nil {
			if outcome != nil {
				// partial progress is still reported
				_ = printJSON(cmd, splitResponse{SplitOutcome: outcome})
			}
			return err
		}

		response := splitResponse{SplitOutcome: outcome}
		if archiveSource {
			archiver, err := utils.NewArchiver(settings)
			if err != nil {
				return err
			}
			ref, err := archiver.Archive(ctx, args[0])
			if err != nil {
				config.LogError(config.GetLogger(), "cmd", "split", "Archive", args[0], err)
				return err
			}
			response.Archived = ref
		}
		return printJSON(cmd, response)
	},
}

var samplePdfCmd = &cobra.Command{
	Use:   "sample-pdf <out>",
	Short: "Render a source PDF with one page per active billing record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		path, pages, err := models.CreateSampleSourceDocument(commandContext(cmd), db, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"arquivo": path, "paginas": pages})
	},
}

func init() {
	splitCmd.Flags().BoolVar(&archiveSource, "archive", false, "archive the source PDF after a successful split (ARCHIVE_PROVIDER)")
	rootCmd.AddCommand(migrateCmd, importCmd, splitCmd, samplePdfCmd)
}
