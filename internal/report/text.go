package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/socops/sochub/internal/models"
)

const (
	ruleWidth      = 75
	evidenceMaxLen = 120
	wrapWidth      = 70
)

// Printer renders engine structures as plain text for terminals.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Board prints the unified SOC view.
func (p *Printer) Board(views []models.IncidentView) {
	p.printf("=== UNIFIED SOC VIEW ===\n\n")
	if len(views) == 0 {
		p.printf("No incidents found.\n")
		return
	}
	for _, v := range views {
		inc := v.Incident
		p.printf("[%s] %s\n", inc.ID, inc.Title)
		p.printf("  Severity : %s\n", inc.Severity)
		p.printf("  Risk     : %s (final=%d)\n", formatScore(inc.Risk), inc.FinalRisk)
		p.printf("  User     : %s\n", orDash(inc.User))
		p.printf("  IP       : %s\n", orDash(inc.IP))
		p.printf("  Status   : %s", v.Status())
		if v.Lifecycle != nil && v.Lifecycle.OwnerName() != "" {
			p.printf(" (owner=%s)", v.Lifecycle.OwnerName())
		}
		p.printf("\n")

		if inc.Asset != nil {
			p.printf("  [ASSET]    Attack surface: %s\n", formatScore(inc.Asset.AttackSurfaceScore))
		} else {
			p.printf("  [ASSET]    No data\n")
		}
		if inc.Intel != nil {
			p.printf("  [INTEL]    Risk: %s Score: %s\n", orDash(inc.Intel.Risk), formatScore(inc.Intel.Score))
		} else {
			p.printf("  [INTEL]    No IOC match\n")
		}
		if inc.Forensic != nil {
			p.printf("  [FORENSIC] Risk: %s\n", formatScore(inc.Forensic.RiskScore))
			p.printf("             Categories: %s\n", strings.Join(sortedCategories(inc), ", "))
		} else {
			p.printf("  [FORENSIC] No suspicious behavior\n")
		}
		if inc.Technique != nil {
			p.printf("  [MITRE]    %s\n", techniqueLabel(inc.Technique))
		}
		if len(v.Actions) > 0 {
			p.printf("  Actions:\n")
			for _, a := range v.Actions {
				p.printf("    - %s\n", a)
			}
		}
		p.printf("%s\n", strings.Repeat("-", ruleWidth))
	}
}

// Hunt prints hunt matches one per line.
func (p *Printer) Hunt(incidents []models.UnifiedIncident) {
	if len(incidents) == 0 {
		p.printf("No incidents matched the hunt criteria.\n")
		return
	}
	p.printf("=== HUNT RESULTS (count=%d) ===\n\n", len(incidents))
	for _, inc := range incidents {
		technique := inc.TechniqueID()
		p.printf("%s: user=%s ip=%s sev=%s final_risk=%d mitre=%s\n",
			inc.ID, orDash(inc.User), orDash(inc.IP), orDash(inc.Severity), inc.FinalRisk, orDash(technique))
	}
}

// Stats prints the SOC metrics summary.
func (p *Printer) Stats(s models.Stats) {
	if s.Total == 0 {
		p.printf("No incidents to analyze.\n")
		return
	}
	p.printf("=== SOC STATS ===\n\n")
	p.printf("Total incidents : %d\n\n", s.Total)
	p.table("By severity:", s.BySeverity, 8)
	p.table("By status (lifecycle):", s.ByStatus, 12)
	p.table("By final risk band:", s.ByRiskBand, 16)
	if len(s.ByTechnique) > 0 {
		p.table("Top MITRE techniques:", s.ByTechnique, 8)
	} else {
		p.printf("No MITRE techniques recorded.\n\n")
	}
	p.table("Top users by cumulative final risk:", s.UserExposure, 12)
}

func (p *Printer) table(title string, rows []models.LabelCount, width int) {
	p.printf("%s\n", title)
	for _, row := range rows {
		p.printf("  %-*s : %d\n", width, row.Label, row.Count)
	}
	p.printf("\n")
}

// Playbook prints a defense playbook.
func (p *Printer) Playbook(pb models.Playbook) {
	ctx := pb.Context
	p.printf("=== DEFENSE PLAYBOOK: %s ===\n", ctx.ID)
	p.printf("User     : %s\n", orDash(ctx.User))
	p.printf("IP       : %s\n", orDash(ctx.IP))
	p.printf("Severity : %s (final=%d)\n", orDash(ctx.Severity), ctx.FinalRisk)
	if ctx.Technique != nil {
		p.printf("MITRE    : %s\n", techniqueLabel(ctx.Technique))
	}
	if ctx.Status != "" {
		p.printf("Status   : %s\n", ctx.Status)
	}
	if ctx.Owner != "" {
		p.printf("Owner    : %s\n", ctx.Owner)
	}
	p.printf("\n")

	for _, phase := range pb.Phases {
		p.printf("PHASE: %s\n", phase.Name)
		if phase.NoSpecificSteps {
			p.printf("  (no specific steps)\n\n")
			continue
		}
		for i, step := range phase.Steps {
			p.printf("  %d. %s\n", i+1, step.Title)
			for _, line := range wrap(step.Description, wrapWidth) {
				p.printf("     %s\n", line)
			}
			if len(step.Commands) > 0 {
				p.printf("     Commands:\n")
				for _, cmd := range step.Commands {
					p.printf("       $ %s\n", cmd)
				}
			}
			p.printf("\n")
		}
		p.printf("\n")
	}
}

// Timeline prints the events recorded for entity.
func (p *Printer) Timeline(entity string, events []models.TimelineEvent) {
	p.printf("=== TIMELINE for %s ===\n\n", entity)
	if len(events) == 0 {
		p.printf("No events found for this entity.\n")
		return
	}
	for _, ev := range events {
		p.printf("%s [%s/%s] %s\n", ev.Time.Format("2006-01-02 15:04:05"), ev.Source, orDash(ev.Severity), ev.Category)
		if evidence := truncate(ev.Evidence, evidenceMaxLen); evidence != "" {
			p.printf("  %s\n", evidence)
		}
	}
}

// Lifecycles prints one line per tracked incident.
func (p *Printer) Lifecycles(records []models.LifecycleRecord) {
	if len(records) == 0 {
		p.printf("No incident state recorded yet.\n")
		return
	}
	for _, rec := range records {
		p.printf("%s  status=%s  owner=%s  notes=%d  updated=%s\n",
			rec.ID, rec.Status, orDash(rec.OwnerName()), len(rec.Notes), rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
}

func sortedCategories(inc models.UnifiedIncident) []string {
	out := make([]string, 0)
	for c := range inc.Categories() {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

func techniqueLabel(t *models.TechniqueMapping) string {
	if t == nil {
		return ""
	}
	if t.Tactic == "" {
		return t.MitreID
	}
	return t.MitreID + " / " + t.Tactic
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var (
		lines []string
		line  strings.Builder
	)
	for _, word := range words {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	return append(lines, line.String())
}
