package report

import (
	"fmt"
	"html/template"
	"io"
)

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, -apple-system, "Segoe UI", sans-serif; background: #05060a; color: #f5f5f5; padding: 20px; }
h1 { text-align: center; margin-bottom: 10px; }
.meta { text-align: center; color: #9ca3af; font-size: 12px; }
table { width: 100%; border-collapse: collapse; margin-top: 20px; background: #0b0d15; }
th, td { border: 1px solid #333; padding: 8px 10px; font-size: 14px; }
th { background: #141825; text-align: left; }
tr:nth-child(even) { background: #10131f; }
.badge { display: inline-block; padding: 2px 6px; border-radius: 4px; font-size: 11px; }
.badge-critical { background: #7f1d1d; }
.badge-high { background: #b91c1c; }
.badge-medium { background: #ca8a04; }
.badge-low { background: #15803d; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.Generated}}{{if .RunID}} &middot; run {{.RunID}}{{end}} &middot; {{len .Rows}} incidents</p>
<table>
  <thead>
    <tr><th>ID</th><th>Title</th><th>Severity</th><th>Final Risk</th><th>User</th><th>IP</th><th>MITRE</th><th>Status</th><th>Owner</th></tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>
      <td>{{.ID}}</td>
      <td>{{.Title}}</td>
      <td>{{.Severity}}</td>
      <td><span class="badge badge-{{.SevClass}}">{{.FinalRisk}}</span></td>
      <td>{{.User}}</td>
      <td>{{.IP}}</td>
      <td>{{.Technique}}</td>
      <td>{{.Status}}</td>
      <td>{{.Owner}}</td>
    </tr>
{{- end}}
  </tbody>
</table>
</body>
</html>
`))

// WriteHTML renders data as a standalone HTML page. All values are escaped.
func WriteHTML(w io.Writer, data ExportData) error {
	view := struct {
		Title     string
		RunID     string
		Generated string
		Rows      []exportRow
	}{
		Title:     data.Title,
		RunID:     data.RunID,
		Generated: data.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		Rows:      exportRows(data.Incidents),
	}
	if err := htmlReport.Execute(w, view); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
