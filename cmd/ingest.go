package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lab-agent/common"
	"lab-agent/storage"
	"lab-agent/telemetry"
)

var dumpRows bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store sensor telemetry in SQLite",
	Long: `Recreates the Temperature_Data, Humidity_Data and Pressure_Data tables,
subscribes to mqtt.telemetry_topic and appends every valid reading to its table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sink, err := storage.Open(cfg.Storage, logger.Named("storage"))
		if err != nil {
			return err
		}
		if err := sink.ResetSchema(ctx); err != nil {
			return err
		}

		router, err := telemetry.NewRouter(sink, logger.Named("telemetry"))
		if err != nil {
			return err
		}

		if err := runSession(ctx, cfg.MQTT.TelemetryTopic, router); err != nil {
			return err
		}

		if dumpRows {
			return dump(context.Background(), cmd.OutOrStdout(), sink)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&dumpRows, "dump", false, "print stored rows of every table on shutdown")
}

// dump печатает содержимое всех таблиц телеметрии
func dump(ctx context.Context, out io.Writer, sink *storage.Sink) error {
	for _, kind := range common.Kinds() {
		rows, err := sink.List(ctx, kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%d rows)\n", kind, len(rows))
		for _, row := range rows {
			fmt.Fprintf(out, "  %d\t%s\t%s\t%s\n", row.ID, row.SensorID, row.Timestamp, row.Value)
		}
	}
	return nil
}
