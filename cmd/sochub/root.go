package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "sochub",
		Short: "SOC incident correlation and response hub",
		Long: `sochub merges detection, asset, threat intel and forensic reports into a
single ranked incident board, tracks analyst lifecycle state and generates
containment playbooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to sochub.yaml (default $SOCHUB_CONFIG)")
	flags.StringVar(&opts.detection, "detection", "", "detection report path")
	flags.StringVar(&opts.assets, "assets", "", "asset inventory report path")
	flags.StringVar(&opts.intel, "intel", "", "threat intel report path")
	flags.StringVar(&opts.forensic, "forensic", "", "forensic report path")
	flags.StringVar(&opts.rules, "rules", "", "technique rule table path")
	flags.StringVar(&opts.state, "state", "", "lifecycle store path")
	flags.StringVar(&opts.backend, "store", "", "lifecycle store backend (file or sqlite)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.json, "json", false, "emit JSON instead of text")

	root.AddCommand(
		newReportCmd(opts),
		newHuntCmd(opts),
		newStatsCmd(opts),
		newTimelineCmd(opts),
		newPlaybookCmd(opts),
		newIncidentsCmd(opts),
		newExportCmd(opts),
		newVersionCmd(),
	)
	return root
}
