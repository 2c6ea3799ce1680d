package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/homemade/smartsync/sync"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile        string
	envFile        string
	recordRequests bool
)

var rootCmd = &cobra.Command{
	Use:   "smartsync",
	Short: "Sync Smartlead campaign engagement into BigQuery",
	Long: `smartsync pulls the leads export of every active Smartlead campaign
and updates the matching rows of the BigQuery contacts table.

Configuration is read from the environment (and a .env file when present):
PROJECT_ID, DATASET, TABLE, SMARTLEAD_API_KEY, SMARTLEAD_CAMPAIGN_ID,
EMAIL_LIMIT and WAIT_SECONDS are required.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "yaml file layered over the built-in defaults")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", sync.DefaultDotEnvFile, "dotenv file to load, empty to disable")
	rootCmd.PersistentFlags().BoolVar(&recordRequests, "record-requests", false, "record Smartlead responses under testdata/.requests")

	rootCmd.AddCommand(runCmd, serveCmd, invalidateCmd, columnsCmd)
}

func loadConfig() (*sync.Config, error) {
	opts := []sync.ConfigOption{sync.ConfigWithDotEnvFile(envFile)}
	if cfgFile != "" {
		opts = append(opts, sync.ConfigWithFile(cfgFile))
	}
	return sync.LoadConfigFromEnvironment(opts...)
}

// environment is everything a command needs once startup has succeeded.
type environment struct {
	config    *sync.Config
	logger    *zap.SugaredLogger
	warehouse *sync.BigQueryWarehouse
	close     func()
}

// setup loads config, opens the run log and authenticates against
// BigQuery. Any failure here aborts the command before work starts.
func setup(ctx context.Context) (*environment, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closeLogger, err := sync.NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}
	logger.Info("Initializing BigQuery client")
	warehouse, err := sync.NewBigQueryWarehouse(ctx, config.Warehouse)
	if err != nil {
		logger.Errorw("Failed to initialise BigQuery", "error", err)
		closeLogger()
		return nil, errors.Wrap(err, "startup failed")
	}
	return &environment{
		config:    config,
		logger:    logger,
		warehouse: warehouse,
		close: func() {
			if err := warehouse.Close(); err != nil {
				logger.Warnw("Failed to close BigQuery client", "error", err)
			}
			closeLogger()
		},
	}, nil
}

// syncContext starts a new batch.
func (e *environment) syncContext() *sync.SyncContext {
	return &sync.SyncContext{
		Config:         e.config,
		Logger:         e.logger,
		Batch:          sync.NewBatch(time.Now()),
		RecordRequests: recordRequests,
	}
}

// runner returns a Runner that starts a fresh batch for every run.
func (e *environment) runner() sync.Runner {
	return sync.RunnerFunc(func(ctx context.Context) sync.RunSummary {
		return sync.NewOrchestrator(e.syncContext(), e.warehouse).Run(ctx)
	})
}
