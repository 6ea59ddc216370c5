package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lab-agent/dictionary"
)

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Answer word queries with dictionary definitions",
	Long: `Subscribes to mqtt.command_topic, treats each message as a word and publishes
its formatted definition as plain text to mqtt.response_topic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := dictionary.NewClient(cfg.Dictionary, logger.Named("dictionary"))
		responder := dictionary.NewResponder(client, logger.Named("responder"))
		return runSession(ctx, cfg.MQTT.CommandTopic, responder)
	},
}
