package domain

type ControlDef struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Framework   string   `yaml:"framework"`
	Description string   `yaml:"description"`
	Severity    Severity `yaml:"severity"`
	Remediation string   `yaml:"remediation"`
}
