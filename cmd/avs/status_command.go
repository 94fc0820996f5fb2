package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/bootstrap"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/report"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id|titre>",
		Short: "Affiche les compteurs sub/dub de chaque saison d'une série",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
				ov, err := rt.Catalog.Overview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.RenderOverview(ov))
				return nil
			})
		},
	}
}

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	var show string
	var limit int

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Liste les derniers épisodes découverts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
				showID := ""
				if show != "" {
					sh, err := rt.Catalog.Find(cmd.Context(), show)
					if err != nil {
						return fmt.Errorf("show %q: %w", show, err)
					}
					showID = sh.ID
				}
				items, err := rt.Notifications.List(cmd.Context(), showID, limit)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Aucun épisode découvert.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.RenderNotifications(items, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "Filtrer sur une série (id ou fragment de titre)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Nombre maximum d'entrées")
	return cmd
}
