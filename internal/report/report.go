// Package report met en forme le résultat d'une passe de synchro pour le
// terminal: une trace ligne à ligne et des tableaux.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/streampath"
)

type Options struct {
	// Color active les couleurs ANSI (en pratique: stdout est un TTY).
	Color bool
}

// Label rend l'issue d'une piste. En passe à blanc, "added" devient "available":
// rien n'a été écrit.
func Label(o app.Outcome, dryRun bool) string {
	if o == app.OutcomeAdded && dryRun {
		return "available"
	}
	return string(o)
}

func seasonNote(s app.SeasonResult) string {
	switch s.Skip {
	case app.SkipFinished:
		return "skipped-finished"
	case app.SkipNoEpisodes:
		return "no-episodes"
	}
	if s.Finished {
		return "finished"
	}
	return ""
}

func (o Options) paint(outcome string, s string) string {
	if !o.Color {
		return s
	}
	switch outcome {
	case "added", "available", "finished":
		return text.FgGreen.Sprint(s)
	case "no-stream-path", "canceled":
		return text.FgYellow.Sprint(s)
	case "not-available", "cap-reached", "track-unavailable", "skipped-finished", "no-episodes":
		return text.Faint.Sprint(s)
	}
	return s
}

func seasonTag(s app.SeasonResult) string {
	if s.Label != "" {
		return s.Label
	}
	return fmt.Sprintf("S%d", s.Season)
}

// RenderTrace écrit une ligne par piste: baseline, candidat, issue.
func RenderTrace(w io.Writer, res app.PassResult, opts Options) error {
	var b strings.Builder
	for _, sh := range res.Shows {
		fmt.Fprintf(&b, "> %s\n", sh.Title)
		if sh.Canceled && len(sh.Seasons) == 0 {
			fmt.Fprintf(&b, "  %s\n", opts.paint("canceled", "canceled"))
			continue
		}
		for _, s := range sh.Seasons {
			if note := seasonNote(s); s.Skip != app.SkipNone {
				fmt.Fprintf(&b, "  [%s] %s\n", seasonTag(s), opts.paint(note, note))
				continue
			}
			for _, d := range s.Tracks {
				label := Label(d.Outcome, res.DryRun)
				fmt.Fprintf(&b, "  [%s] %s baseline=%s candidate=%s -> %s\n",
					seasonTag(s), d.Audio.Tag(),
					streampath.FormatEpisode(d.Baseline), streampath.FormatEpisode(d.Candidate),
					opts.paint(label, label))
			}
			if s.Finished {
				fmt.Fprintf(&b, "  [%s] %s\n", seasonTag(s), opts.paint("finished", "finished"))
			}
		}
	}
	b.WriteString(Summary(res))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Summary est la ligne de fin de passe.
func Summary(res app.PassResult) string {
	mode := "live"
	if res.DryRun {
		mode = "dry-run"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s across %s",
		mode,
		english.Plural(res.Added, "new episode", ""),
		english.Plural(len(res.ChangedShows), "show", ""))
	if len(res.ChangedShows) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(res.ChangedShows, ", "))
	}
	fmt.Fprintf(&b, ", %s visited in %s", humanize.Comma(int64(len(res.Shows))), res.Duration().Round(time.Millisecond))
	switch {
	case res.Saved:
		b.WriteString(", catalog saved")
	case res.DryRun:
		b.WriteString(", nothing written")
	default:
		b.WriteString(", catalog unchanged")
	}
	if res.Canceled {
		b.WriteString(" [canceled]")
	}
	return b.String()
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func rightAligned(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, n := range cols {
		out = append(out, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	return out
}

// RenderTable rend la passe sous forme de tableau (une ligne par piste ou saison ignorée).
func RenderTable(res app.PassResult, opts Options) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Show", "Season", "Audio", "Baseline", "Candidate", "Cap", "Outcome"})
	for _, sh := range res.Shows {
		for _, s := range sh.Seasons {
			if s.Skip != app.SkipNone {
				note := seasonNote(s)
				tw.AppendRow(table.Row{sh.Title, seasonTag(s), "", "", "", "", opts.paint(note, note)})
				continue
			}
			for _, d := range s.Tracks {
				label := Label(d.Outcome, res.DryRun)
				tw.AppendRow(table.Row{sh.Title, seasonTag(s), d.Audio.Tag(), d.Baseline, d.Candidate, capLabel(d.Cap), opts.paint(label, label)})
			}
		}
	}
	tw.SetColumnConfigs(rightAligned(4, 5, 6))
	tw.AppendFooter(table.Row{"", "", "", "", "", "", Summary(res)})
	return tw.Render()
}

func capLabel(n int) string {
	if n <= 0 {
		return "-"
	}
	return fmt.Sprint(n)
}

func countLabel(n *int) string {
	if n == nil {
		return "-"
	}
	return streampath.FormatEpisode(*n)
}

// RenderOverview reprend l'état courant d'une série (compteurs sub/dub, plafond, statut).
func RenderOverview(ov app.ShowOverview) string {
	tw := newTable()
	tw.SetTitle(ov.Title)
	tw.AppendHeader(table.Row{"Season", "Type", "SUB", "DUB", "Max", "Status"})
	for _, s := range ov.Seasons {
		tw.AppendRow(table.Row{s.Label, string(s.Kind), countLabel(s.Sub), countLabel(s.Dub), capLabel(s.Max), string(s.Status)})
	}
	tw.SetColumnConfigs(rightAligned(3, 4, 5))
	return tw.Render()
}

func RenderNotifications(items []app.NotificationDTO, now time.Time) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Show", "Season", "Audio", "Episode", "Discovered"})
	for _, n := range items {
		tw.AppendRow(table.Row{
			n.ShowTitle,
			n.Season,
			n.Audio.Tag(),
			streampath.FormatEpisode(n.Episode),
			humanize.RelTime(n.DiscoveredAt, now, "ago", "from now"),
		})
	}
	tw.SetColumnConfigs(rightAligned(2, 4))
	return tw.Render()
}
