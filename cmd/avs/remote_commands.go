package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/buildinfo"
)

const remoteTimeout = 10 * time.Second

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Interroge /api/v1/health sur avs-server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return remote(cmd.OutOrStdout(), http.MethodGet, ctx.serverURL()+"/api/v1/health")
		},
	}
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Liste les passes asynchrones d'avs-server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return remote(cmd.OutOrStdout(), http.MethodGet, ctx.serverURL()+"/api/v1/sync/runs")
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Annule une passe en attente ou en cours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return remote(cmd.OutOrStdout(), http.MethodPost, ctx.serverURL()+"/api/v1/sync/runs/"+args[0]+"/cancel")
		},
	})
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Affiche la version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "avs %s\n", buildinfo.Current())
			return err
		},
	}
}

// remote appelle avs-server et réindente la réponse JSON.
func remote(w io.Writer, method, url string) error {
	client := &http.Client{Timeout: remoteTimeout}
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err == nil {
		b = buf.Bytes()
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %s", method, url, resp.Status)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
