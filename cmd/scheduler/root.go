package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/meeting-finder/internal/config"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "scheduler",
		Short:         "Meeting finder API and maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", config.DefaultEnvFiles, "dotenv files loaded before the environment is parsed")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newReconcileCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newHashKeyCmd())
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.LoadWithFiles(o.envFiles...)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
