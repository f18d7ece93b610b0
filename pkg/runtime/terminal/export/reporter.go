package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
)

type TableConfig struct {
	ControlWidth     int
	StatusWidth      int
	ResourceWidth    int
	FreshnessWidth   int
	DescriptionWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		ControlWidth:     8,
		StatusWidth:      6,
		ResourceWidth:    48,
		FreshnessWidth:   9,
		DescriptionWidth: 60,
	}
}

// Reporter prints the findings snapshot of a finished scan as a table.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type tableView struct {
	Scan     domain.Scan
	Findings []domain.EvidenceFinding
}

func (c *Reporter) Handle(sc *domain.Scan) error {
	var findings []domain.EvidenceFinding
	if len(sc.Findings) > 0 {
		if err := json.Unmarshal(sc.Findings, &findings); err != nil {
			return fmt.Errorf("failed to decode findings of scan %s: %w", sc.ID, err)
		}
	}

	funcMap := template.FuncMap{
		"formatRow": func(control, status, resource, freshness, desc string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s | %-*s |",
				c.config.ControlWidth, control,
				c.config.StatusWidth, status,
				c.config.ResourceWidth, truncate(resource, c.config.ResourceWidth),
				c.config.FreshnessWidth, freshness,
				c.config.DescriptionWidth, truncate(desc, c.config.DescriptionWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.ControlWidth+2),
				strings.Repeat("-", c.config.StatusWidth+2),
				strings.Repeat("-", c.config.ResourceWidth+2),
				strings.Repeat("-", c.config.FreshnessWidth+2),
				strings.Repeat("-", c.config.DescriptionWidth+2))
		},
		"str": func(v any) string { return fmt.Sprint(v) },
	}

	tmpl := `
Scan {{.Scan.ID}} ({{str .Scan.Status}})
Account: {{.Scan.AccountID}}
Score: {{.Scan.Score}}
{{if .Scan.Error}}Error: {{.Scan.Error}}
{{end}}
{{if .Findings}}{{separator}}
{{formatRow "Control" "Status" "Resource" "Freshness" "Description"}}
{{separator}}
{{range .Findings}}{{formatRow .ControlID (str .Status) .Resource (str .Freshness) .Description}}
{{end}}{{separator}}
{{else}}No resources were evaluated.
{{end}}`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, tableView{Scan: *sc, Findings: findings})
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
