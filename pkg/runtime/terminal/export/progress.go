package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/fatih/color"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
)

const summaryTemplate = `
Scan:     {{.ScanID}}
Account:  {{.AccountID}}
State:    {{state .State}}
Score:    {{score .Score}}
Findings: {{len .Findings}} evaluated, {{.Failures}} not passing
{{range .Warnings}}{{warn "warning"}}: {{.}}
{{end}}{{if .Reason}}Reason:   {{.Reason}}
{{end}}`

// Progress prints scan events as they arrive.
type Progress struct {
	writer  io.Writer
	summary *template.Template
}

func NewProgress(writer io.Writer) *Progress {
	if writer == nil {
		writer = os.Stdout
	}
	funcMap := template.FuncMap{
		"state": func(s scan.State) string {
			if s == scan.StateCompleted {
				return color.GreenString(string(s))
			}
			return color.RedString(string(s))
		},
		"score": func(score int) string {
			switch {
			case score == 100:
				return color.GreenString("%d", score)
			case score >= 70:
				return color.YellowString("%d", score)
			default:
				return color.RedString("%d", score)
			}
		},
		"warn": func(s string) string { return color.YellowString(s) },
	}
	return &Progress{
		writer:  writer,
		summary: template.Must(template.New("summary").Funcs(funcMap).Parse(summaryTemplate)),
	}
}

// Follow drains events until the stream closes and returns the final
// result carried by the done event.
func (p *Progress) Follow(events <-chan scan.Event) (*scan.Result, error) {
	var (
		result *scan.Result
		err    error
	)
	for e := range events {
		switch e.Type {
		case scan.EventState:
			if !e.State.Terminal() {
				fmt.Fprintf(p.writer, "%s %s\n", color.CyanString("[%s]", "STATE"), e.State)
			}
		case scan.EventTotal:
			fmt.Fprintf(p.writer, "%s evaluating %d resources\n", color.CyanString("[%s]", "INFO"), e.Total)
		case scan.EventFinding:
			p.printFinding(e.Finding)
		case scan.EventDone:
			result, err = e.Result, e.Err
		}
	}

	if result == nil {
		return nil, fmt.Errorf("scan stream ended without a result")
	}
	if terr := p.summary.Execute(p.writer, result); terr != nil {
		return result, fmt.Errorf("failed to print summary: %w", terr)
	}
	return result, err
}

func (p *Progress) printFinding(f *domain.EvidenceFinding) {
	if f == nil {
		return
	}
	var status string
	switch f.Status {
	case domain.FindingStatusPass:
		status = color.GreenString("%-5s", f.Status)
	case domain.FindingStatusFail:
		status = color.RedString("%-5s", f.Status)
	default:
		status = color.YellowString("%-5s", f.Status)
	}
	fmt.Fprintf(p.writer, "  %s %s %s\n", status, f.ControlID, f.Resource)
}
