package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var serverFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &serverFlag)

	rootCmd := &cobra.Command{
		Use:           "avs",
		Short:         "Synchronise la disponibilité des épisodes du catalogue avec le CDN",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Fichier de configuration YAML (défaut: $AVS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Niveau de log (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", envOr("AVS_SERVER_URL", ""), "URL du serveur avs-server (défaut: server.addr)")

	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newNotificationsCommand(ctx))
	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
