package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lab-agent/command"
	"lab-agent/dictionary"
)

var withDictionary bool

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Execute commands received on the command topic",
	Long: `Subscribes to mqtt.command_topic, runs each message as a command
(ls, ip, mem, mkfile, define) and publishes a JSON result to mqtt.response_topic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dispatcher, err := newAgentDispatcher()
		if err != nil {
			return err
		}
		return runSession(ctx, cfg.MQTT.CommandTopic, dispatcher)
	},
}

func init() {
	agentCmd.Flags().BoolVar(&withDictionary, "define", true, "register the define/dict command backed by the dictionary API")
}

func newAgentDispatcher() (*command.Dispatcher, error) {
	opts := command.Options{WorkDir: cfg.Agent.WorkDir}
	if withDictionary {
		opts.Dictionary = dictionary.NewClient(cfg.Dictionary, logger.Named("dictionary"))
	}

	registry, err := command.NewRegistry(command.Builtins(opts)...)
	if err != nil {
		return nil, err
	}
	for _, entry := range registry.Entries() {
		logger.Debug("command registered", zap.String("name", entry.Name), zap.Strings("aliases", entry.Aliases))
	}

	executor := command.NewExecutor(registry, cfg.Agent.Timeout, logger.Named("executor"))
	return command.NewDispatcher(executor, logger.Named("agent")), nil
}
