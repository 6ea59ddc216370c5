// Package cmd содержит CLI агента: режимы agent, ingest и dictionary
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lab-agent/config"
	"lab-agent/logging"
	"lab-agent/metrics"
	"lab-agent/mqtt"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "lab-agent",
	Short:         "MQTT command agent and telemetry ingester",
	Long:          `lab-agent executes text commands received over MQTT and stores sensor telemetry in SQLite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		logger, err = logging.New(cfg.Logging.Level)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute запускает CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.config/lab-agent/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log level (debug, info, warn, error, none)")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(dictionaryCmd)
}

// runSession держит одну MQTT сессию до отмены ctx
func runSession(ctx context.Context, topic string, dispatcher mqtt.Dispatcher) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	if cfg.Metrics.Addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := metrics.Serve(ctx, metrics.ServerConfig{Addr: cfg.Metrics.Addr, Path: cfg.Metrics.Path}, logger.Named("metrics"))
			if err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	session := mqtt.NewSession(cfg.MQTT, topic, dispatcher, logger)
	if err := session.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("shutdown requested before broker connection")
			return nil
		}
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	session.Stop()
	return nil
}
