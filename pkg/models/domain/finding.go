package domain

import "time"

type FindingStatus string

const (
	FindingStatusPass  FindingStatus = "PASS"
	FindingStatusFail  FindingStatus = "FAIL"
	FindingStatusError FindingStatus = "ERROR"
)

type Freshness string

const (
	FreshnessFresh   Freshness = "FRESH"
	FreshnessStale   Freshness = "STALE"
	FreshnessExpired Freshness = "EXPIRED"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// EvidenceFinding is the in-flight result of one control applied to one
// resource. Rule evaluators must populate every field.
type EvidenceFinding struct {
	ControlID   string         `json:"control_id"`
	Resource    string         `json:"resource"`
	Status      FindingStatus  `json:"status"`
	Description string         `json:"description"`
	Evidence    map[string]any `json:"evidence"`
	Timestamp   time.Time      `json:"timestamp"`
	Freshness   Freshness      `json:"freshness"`
}

func (f EvidenceFinding) Failed() bool {
	return f.Status == FindingStatusFail
}

// Finding is the durable record of a failing check.
type Finding struct {
	ID          string
	ControlID   string
	Status      FindingStatus
	Description string
	Severity    Severity
	AssetID     string
	ScanID      string
	UpdatedAt   time.Time
}

// AssetStatusOf folds the findings of a single resource into an asset status.
// A failing check wins over an errored one, and both win over a pass.
func AssetStatusOf(findings []EvidenceFinding) AssetStatus {
	if len(findings) == 0 {
		return AssetStatusUnknown
	}
	status := AssetStatusPass
	for _, f := range findings {
		switch f.Status {
		case FindingStatusFail:
			return AssetStatusFail
		case FindingStatusError:
			status = AssetStatusError
		}
	}
	return status
}
