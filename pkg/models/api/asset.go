package api

import "time"

type Asset struct {
	ID         string            `json:"id"`
	ResourceID string            `json:"resource_id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Provider   string            `json:"provider"`
	Region     string            `json:"region"`
	Status     string            `json:"status"`
	Metadata   map[string]string `json:"metadata"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Findings   []Finding         `json:"findings"`
}

type Finding struct {
	ID          string    `json:"id"`
	ControlID   string    `json:"control_id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	ScanID      string    `json:"scan_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}
