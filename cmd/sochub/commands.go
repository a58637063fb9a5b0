package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/socops/sochub/internal/engine"
	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/report"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the ranked incident board",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			board, err := a.hub.Board(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(board)
			}
			a.printer.Board(board)
			return nil
		}),
	}
}

func newHuntCmd(opts *rootOptions) *cobra.Command {
	var criteria engine.HuntCriteria
	cmd := &cobra.Command{
		Use:   "hunt",
		Short: "Filter incidents by user, IP, technique, category or minimum risk",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			if criteria.Empty() {
				a.logger.Info().Msg("no hunt criteria given, listing every incident")
			}
			hits, err := a.hub.Hunt(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(hits)
			}
			a.printer.Hunt(hits)
			return nil
		}),
	}
	cmd.Flags().StringVar(&criteria.User, "user", "", "exact user match")
	cmd.Flags().StringVar(&criteria.IP, "ip", "", "exact IP match")
	cmd.Flags().StringVar(&criteria.Technique, "mitre", "", "MITRE technique id, e.g. T1059")
	cmd.Flags().StringVar(&criteria.Category, "category", "", "forensic category, e.g. CREDENTIAL_ABUSE")
	cmd.Flags().IntVar(&criteria.MinRisk, "min-risk", 0, "minimum final risk")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise incidents by severity, status, risk band, technique and user",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			summary, err := a.hub.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(summary)
			}
			a.printer.Stats(summary)
			return nil
		}),
	}
}

func newTimelineCmd(opts *rootOptions) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show detection and forensic events in time order",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			events, err := a.hub.Timeline(cmd.Context(), entity)
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(events)
			}
			a.printer.Timeline(entity, events)
			return nil
		}),
	}
	cmd.Flags().StringVar(&entity, "entity", "", "user, IP or asset to filter on")
	return cmd
}

func newPlaybookCmd(opts *rootOptions) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "playbook",
		Short: "Generate the response playbook for one incident",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			pb, err := a.hub.Playbook(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("playbook %s: %w", id, err)
			}
			if a.json {
				return a.printer.JSON(pb)
			}
			a.printer.Playbook(pb)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "incident id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newIncidentsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "Inspect and update incident lifecycle state",
	}
	cmd.AddCommand(
		newIncidentsListCmd(opts),
		newIncidentsShowCmd(opts),
		newIncidentsTrackCmd(opts),
		newIncidentsUpdateCmd(opts),
	)
	return cmd
}

func newIncidentsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored lifecycle records",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			records, err := a.hub.Lifecycles(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(records)
			}
			a.printer.Lifecycles(records)
			return nil
		}),
	}
}

func newIncidentsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one incident with its lifecycle state and actions",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			view, err := a.hub.Incident(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("incident %s: %w", args[0], err)
			}
			if a.json {
				return a.printer.JSON(view)
			}
			a.printer.Board([]models.IncidentView{view})
			return nil
		}),
	}
}

func newIncidentsTrackCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "track <id>",
		Short: "Start tracking an incident, creating a NEW lifecycle record if absent",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			rec, err := a.hub.GetOrCreateLifecycle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(rec)
			}
			a.printer.Lifecycles([]models.LifecycleRecord{rec})
			return nil
		}),
	}
}

func newIncidentsUpdateCmd(opts *rootOptions) *cobra.Command {
	var (
		status string
		owner  string
		note   string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change status, owner or append a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			update := models.LifecycleUpdate{Status: status, Note: note}
			// --owner "" clears the owner; omitting the flag leaves it untouched
			if cmd.Flags().Changed("owner") {
				update.Owner = &owner
			}
			rec, err := a.hub.UpdateLifecycle(cmd.Context(), args[0], update)
			if err != nil {
				return err
			}
			if a.json {
				return a.printer.JSON(rec)
			}
			a.printer.Lifecycles([]models.LifecycleRecord{rec})
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "NEW, TRIAGED, CONTAINED, ERADICATED or CLOSED")
	cmd.Flags().StringVar(&owner, "owner", "", "analyst owning the incident")
	cmd.Flags().StringVar(&note, "note", "", "note to append")
	return cmd
}

const (
	formatHTML = "html"
	formatPDF  = "pdf"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the incident board as an HTML or PDF report",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != formatHTML && format != formatPDF {
				return fmt.Errorf("unsupported export format %q", format)
			}

			snap, err := a.hub.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			data := report.ExportData{
				Title:       a.cfg.Export.Title,
				RunID:       snap.RunID,
				GeneratedAt: snap.GeneratedAt,
				Incidents:   snap.Incidents,
				Stats:       snap.Stats,
			}

			if out == "" {
				out = filepath.Join("reports", "soc-report."+format)
			}
			if err := writeExport(cmd.OutOrStdout(), out, format, data); err != nil {
				return err
			}
			a.logger.Info().Str("format", format).Str("path", out).Int("incidents", len(data.Incidents)).Msg("report exported")
			return nil
		}),
	}
	cmd.Flags().StringVar(&format, "format", formatHTML, "html or pdf")
	cmd.Flags().StringVar(&out, "out", "", `output path, "-" for stdout (default reports/soc-report.<format>)`)
	return cmd
}

func writeExport(stdout io.Writer, path, format string, data report.ExportData) (err error) {
	var w io.Writer = stdout
	if path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create export file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close export file: %w", cerr)
			}
		}()
		w = f
	}

	if format == formatPDF {
		pdf, err := report.NewPDFGenerator().Generate(data)
		if err != nil {
			return err
		}
		_, err = w.Write(pdf)
		return err
	}
	return report.WriteHTML(w, data)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sochub version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "sochub", version)
		},
	}
}
