package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/bootstrap"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/logging"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/report"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var dryRun, all, asTable, noColor bool
	var shows []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sonde le CDN et ajoute les nouveaux épisodes au catalogue",
		Long: `Lance une passe de synchronisation: pour chaque saison et piste audio,
l'épisode suivant est sondé sur le CDN et ajouté s'il existe.

Avec --dry-run, rien n'est écrit: la trace indique "available" au lieu de "added".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
				opts := app.PassOptions{DryRun: dryRun, OngoingOnly: !all}
				for _, q := range shows {
					sh, err := rt.Catalog.Find(cmd.Context(), q)
					if err != nil {
						return fmt.Errorf("show %q: %w", q, err)
					}
					opts.ShowIDs = append(opts.ShowIDs, sh.ID)
				}

				res, err := runPassRecording(cmd.Context(), rt, opts)
				out := cmd.OutOrStdout()
				ropts := report.Options{Color: !noColor && logging.IsTerminal(out)}
				if res.ID != "" {
					if rerr := report.RenderTrace(out, res, ropts); rerr != nil {
						return rerr
					}
					if asTable && len(res.Shows) > 0 {
						fmt.Fprintln(out)
						fmt.Fprintln(out, report.RenderTable(res, ropts))
					}
				}
				if err != nil {
					return err
				}
				if res.Canceled {
					return context.Canceled
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Sonde sans rien écrire")
	cmd.Flags().StringSliceVar(&shows, "show", nil, "Limiter à une série (id ou fragment de titre, répétable)")
	cmd.Flags().BoolVar(&all, "all", false, "Inclure les séries sans saison en cours")
	cmd.Flags().BoolVar(&asTable, "table", false, "Ajouter un tableau récapitulatif")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Désactiver les couleurs")
	return cmd
}

// runPassRecording exécute la passe et enregistre les épisodes découverts
// dans l'historique des notifications avant de rendre la main.
func runPassRecording(ctx context.Context, rt *bootstrap.Runtime, opts app.PassOptions) (app.PassResult, error) {
	recorder := app.NewNotificationRecorder(rt.Logger.With().Str("component", "notifications").Logger(), rt.Bus, rt.NotifRepo)
	done := recorder.Start(context.WithoutCancel(ctx))

	res, err := rt.Sync.RunPass(ctx, opts)

	// La fermeture du bus vide l'abonnement puis arrête l'enregistreur.
	rt.Bus.Close()
	<-done
	return res, err
}
