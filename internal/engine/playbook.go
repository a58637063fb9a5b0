package engine

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/utils"
)

const (
	forensicRoot = "/var/ir"

	// syslog timestamps pad single-digit days with a space
	authLogHourLayout = "Jan _2 15:"

	offHoursGrep = "grep -E '^[A-Z][a-z]{2} +[0-9]+ (0[0-5]|2[2-3]):' /var/log/auth.log || true"
)

// BuildPlaybook derives the four remediation phases for an incident. lifecycle is
// optional and only annotates the playbook context. The result is a pure function
// of its inputs; commands are documentation and are never executed.
func BuildPlaybook(inc models.UnifiedIncident, lifecycle *models.LifecycleRecord) models.Playbook {
	ctx := models.PlaybookContext{
		ID:        inc.ID,
		User:      inc.User,
		IP:        inc.IP,
		Severity:  inc.Severity,
		FinalRisk: inc.FinalRisk,
		Technique: inc.Technique,
	}
	if lifecycle != nil {
		ctx.Status = lifecycle.Status
		ctx.Owner = lifecycle.OwnerName()
	}

	categories := inc.Categories()
	techniqueID := strings.TrimSpace(inc.TechniqueID())

	return models.Playbook{
		Context: ctx,
		Phases: []models.Phase{
			newPhase(models.PhaseContainment, containmentSteps(inc, categories, techniqueID)),
			newPhase(models.PhaseEradication, eradicationSteps(inc, categories)),
			newPhase(models.PhaseRecovery, recoverySteps(inc)),
			newPhase(models.PhaseForensic, forensicSteps(inc)),
		},
	}
}

func newPhase(name models.PhaseName, steps []models.Step) models.Phase {
	if steps == nil {
		steps = []models.Step{}
	}
	return models.Phase{Name: name, Steps: steps, NoSpecificSteps: len(steps) == 0}
}

func containmentSteps(inc models.UnifiedIncident, categories map[models.Category]struct{}, techniqueID string) []models.Step {
	var steps []models.Step

	if inc.IP != "" {
		steps = append(steps, models.Step{
			Title:       "Block suspected C2 / malicious IP",
			Description: fmt.Sprintf("Block outbound/inbound traffic to/from %s at firewall.", inc.IP),
			Commands: []string{
				fmt.Sprintf("iptables -A INPUT -s %s -j DROP", shellArg(inc.IP)),
				fmt.Sprintf("iptables -A OUTPUT -d %s -j DROP", shellArg(inc.IP)),
			},
		})
	}

	if inc.User != "" {
		steps = append(steps, models.Step{
			Title:       fmt.Sprintf("Lock account %s", inc.User),
			Description: "Temporarily lock the compromised account during investigation.",
			Commands: []string{
				fmt.Sprintf("usermod -L %s", shellArg(inc.User)),
				fmt.Sprintf("passwd -l %s", shellArg(inc.User)),
			},
		})
	}

	if _, ok := categories[models.CategoryCredentialAbuse]; ok {
		kill := "# pkill -KILL -u <user>"
		if inc.User != "" {
			kill = fmt.Sprintf("pkill -KILL -u %s", shellArg(inc.User))
		}
		steps = append(steps, models.Step{
			Title:       "Invalidate sessions and enforce MFA",
			Description: "Terminate active sessions for the user and enforce MFA on next login.",
			Commands:    []string{"# terminate SSH sessions for user", kill},
		})
	}

	if techniqueID == "T1059" {
		steps = append(steps, models.Step{
			Title:       "Block reverse shells / suspicious outbound ports",
			Description: "Harden egress firewall rules for shell-like traffic (nc, bash over TCP, etc).",
			Commands: []string{
				"# example: block outbound high-risk ports",
				"iptables -A OUTPUT -p tcp --dport 4444 -j DROP",
			},
		})
	}
	return steps
}

func eradicationSteps(inc models.UnifiedIncident, categories map[models.Category]struct{}) []models.Step {
	var steps []models.Step

	_, adminMisuse := categories[models.CategoryAdminMisuse]
	_, malicious := categories[models.CategoryMaliciousPattern]
	if adminMisuse || malicious {
		steps = append(steps,
			models.Step{
				Title:       "Review and clean cron jobs",
				Description: "Look for suspicious cron entries that may provide persistence.",
				Commands: []string{
					"crontab -l",
					"ls -l /etc/cron*",
					"grep -R 'nc ' /etc/cron* || true",
				},
			},
			models.Step{
				Title:       "Inspect system services for backdoors",
				Description: "Review custom or recently modified services.",
				Commands: []string{
					"systemctl list-units --type=service",
					"journalctl -u <service_name>",
				},
			},
		)
	}

	if _, ok := categories[models.CategoryTimeAnomaly]; ok {
		steps = append(steps, models.Step{
			Title:       "Correlate off-hours activity",
			Description: "Confirm whether off-hours actions were authorized and by whom.",
			Commands:    []string{offHoursCommand(inc.Forensic)},
		})
	}
	return steps
}

// offHoursCommand greps the auth log for the hour of the first dated time
// anomaly, falling back to a generic off-hours pattern.
func offHoursCommand(forensic *models.ForensicUserRecord) string {
	if forensic != nil {
		for _, f := range forensic.Findings {
			if models.Category(f.Category) != models.CategoryTimeAnomaly {
				continue
			}
			ts, err := utils.ParseTimestamp(f.Ts)
			if err != nil {
				continue
			}
			return fmt.Sprintf("grep '%s' /var/log/auth.log || true", ts.Format(authLogHourLayout))
		}
	}
	return offHoursGrep
}

func recoverySteps(inc models.UnifiedIncident) []models.Step {
	var steps []models.Step
	if inc.User != "" {
		steps = append(steps, models.Step{
			Title:       fmt.Sprintf("Reset credentials for %s", inc.User),
			Description: "After containment and eradication, reset the account password and re-enable login.",
			Commands: []string{
				fmt.Sprintf("passwd %s", shellArg(inc.User)),
				fmt.Sprintf("usermod -U %s", shellArg(inc.User)),
			},
		})
	}
	steps = append(steps, models.Step{
		Title:       "Re-baseline detection rules",
		Description: "Update and tune detection rules so this attack pattern is detected earlier next time.",
		Commands:    []string{"# Update detection configs / rule packs for the detection and forensic sources"},
	})
	return steps
}

func forensicSteps(inc models.UnifiedIncident) []models.Step {
	dir := forensicDir(inc.ID)
	return []models.Step{
		{
			Title:       "Preserve key logs",
			Description: "Copy relevant logs to a safe location for further analysis.",
			Commands: []string{
				fmt.Sprintf("mkdir -p %s", dir),
				fmt.Sprintf("cp /var/log/auth.log %s/", dir),
				fmt.Sprintf("tar czf %s %s", path.Join(dir, "auth.tar.gz"), path.Join(dir, "auth.log")),
			},
		},
		{
			Title:       "Capture process and network snapshot",
			Description: "Capture current processes and network connections for deeper forensic work.",
			Commands: []string{
				fmt.Sprintf("ps aux > %s", path.Join(dir, "ps.txt")),
				fmt.Sprintf("ss -plant > %s", path.Join(dir, "net.txt")),
			},
		},
	}
}

// forensicDir keeps the evidence directory a single path element below forensicRoot.
func forensicDir(id string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(id))
	if name == "" || strings.Trim(name, ".") == "" {
		name = "unknown"
	}
	return path.Join(forensicRoot, name)
}

var safeShellWord = regexp.MustCompile(`^[A-Za-z0-9_.:@%+=,/][A-Za-z0-9_.:@%+=,/-]*$`)

// shellArg single-quotes producer supplied values that are not plain words so a
// pasted command line cannot be extended with extra commands or options.
func shellArg(value string) string {
	if safeShellWord.MatchString(value) {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
