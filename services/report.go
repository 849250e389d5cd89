package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"gorm.io/gorm"
)

// ProcessReport is the printable view of a case's process
type ProcessReport struct {
	CaseNumber   string
	ClientName   string
	ContactInfo  string
	CurrentPhase string
	Percentage   int
	OpenedAt     time.Time
	GeneratedAt  time.Time
	Phases       []ReportPhase
}

// ReportPhase holds one phase section of the report
type ReportPhase struct {
	Title     string
	Target    int
	Filled    int
	Required  int
	Complete  bool
	Documents int64
	Rows      []ReportRow
}

// ReportRow is one filled field
type ReportRow struct {
	Label string
	Value string
}

// BuildProcessReport collects the case, its phase fields and document counts
func BuildProcessReport(ctx context.Context, db *gorm.DB, schema *process.Schema, caseID string) (*ProcessReport, error) {
	store := NewProcessStore(db)
	c, err := store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	state, err := store.LoadProcessState(ctx, caseID)
	if err != nil {
		return nil, err
	}

	type docCount struct {
		Phase string
		Total int64
	}
	var counts []docCount
	if err := db.WithContext(ctx).Model(&models.PhaseDocument{}).
		Select("phase, COUNT(*) AS total").
		Where("case_id = ?", caseID).
		Group("phase").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	docsByPhase := make(map[string]int64, len(counts))
	for _, dc := range counts {
		docsByPhase[dc.Phase] = dc.Total
	}

	currentTitle := c.CurrentPhase
	if def, err := schema.Phase(c.CurrentPhase); err == nil {
		currentTitle = def.Title
	}

	report := &ProcessReport{
		CaseNumber:   c.CaseNumber,
		ClientName:   c.Client.Name,
		ContactInfo:  c.Client.ContactInfo,
		CurrentPhase: currentTitle,
		Percentage:   state.CompletionPercentage,
		OpenedAt:     c.OpenedAt,
		GeneratedAt:  time.Now(),
	}

	progress := schema.Progress(state.PerPhaseData)
	for i, def := range schema.Phases() {
		fields := state.PerPhaseData[def.ID]
		section := ReportPhase{
			Title:     def.Title,
			Target:    def.CompletionTarget,
			Filled:    progress[i].Filled,
			Required:  progress[i].Required,
			Complete:  progress[i].Complete,
			Documents: docsByPhase[def.ID],
		}
		for _, f := range def.Fields {
			if value := fields[f.Name]; process.IsFilled(value) {
				section.Rows = append(section.Rows, ReportRow{Label: f.Label, Value: value})
			}
		}
		report.Phases = append(report.Phases, section)
	}
	return report, nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(`<h1>Reporte del proceso {{.CaseNumber}}</h1>
<table>
  <tr><th>Cliente</th><td>{{.ClientName}}</td></tr>
  <tr><th>Contacto</th><td>{{.ContactInfo}}</td></tr>
  <tr><th>Fecha de apertura</th><td>{{date .OpenedAt}}</td></tr>
  <tr><th>Fase actual</th><td>{{.CurrentPhase}}</td></tr>
  <tr><th>Avance</th><td class="progress">{{.Percentage}}%</td></tr>
</table>
{{range .Phases}}
<h2>{{.Title}} ({{.Target}}%)</h2>
<p class="muted">Campos obligatorios: {{.Filled}}/{{.Required}}{{if .Complete}} · completa{{end}} · Documentos: {{.Documents}}</p>
{{if .Rows}}<table>
{{range .Rows}}  <tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>{{else}}<p class="muted">Sin información registrada.</p>{{end}}
{{end}}
<p class="muted">Generado el {{date .GeneratedAt}}</p>`))

// RenderProcessReportHTML renders the report body
func RenderProcessReportHTML(report *ProcessReport) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("failed to render process report: %w", err)
	}
	return buf.String(), nil
}

// RenderProcessReportPDF renders the report and prints it with headless Chrome
func RenderProcessReportPDF(ctx context.Context, report *ProcessReport, options PDFOptions) ([]byte, error) {
	body, err := RenderProcessReportHTML(report)
	if err != nil {
		return nil, err
	}
	return GeneratePDF(ctx, WrapHTMLForPDF(body), options)
}
