package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	datasetId string
	userName  string
	settings  config.PipelineSettings
)

var rootCmd = &cobra.Command{
	Use:           "boletos",
	Short:         "Billing import, document split and reporting pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		settings = config.LoadPipelineSettings()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&datasetId, "dataset", "", "dataset id used for the split lock (default SPLIT_LOCK_KEY)")
	rootCmd.PersistentFlags().StringVar(&userName, "user", os.Getenv("USER"), "operator name recorded in logs and events")
}

// Execute runs the command tree and exits with a code derived from the error kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, utils.ErrValidation):
		return 2
	case errors.Is(err, utils.ErrNotFound):
		return 3
	case errors.Is(err, utils.ErrConflict):
		return 4
	case errors.Is(err, utils.ErrIntegrity):
		return 5
	default:
		return 1
	}
}

// commandContext carries the operator, dataset and a fresh correlation id.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if userName != "" {
		ctx = utils.SetUserNameInContext(ctx, userName)
	}
	if datasetId != "" {
		ctx = utils.SetDatasetIdInContext(ctx, datasetId)
	}
	ctx, _ = utils.EnsureCorrelationId(ctx)
	return ctx
}

// connect opens the database and the optional redis, then migrates the schema.
func connect() (*gorm.DB, error) {
	db := config.ConnectDatabaseWithRetry()
	if db == nil {
		return nil, utils.PersistenceError("database not initialized", errors.New("set DB_* env vars"))
	}
	config.ConnectRedis()
	if err := models.MigrateTable(db); err != nil {
		return nil, utils.PersistenceError("migrate schema", err)
	}
	return db, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
