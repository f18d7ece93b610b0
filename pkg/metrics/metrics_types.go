package metrics

import "time"

const (
	ScanCompletedMetricName        = "evidence_scans_total"
	ScanCompletedMetricDescription = "The total number of finished scans by outcome"
	ScanMetricLabelStatus          = "status"

	ScanDurationMetricName        = "evidence_scan_duration_seconds"
	ScanDurationMetricDescription = "Duration of scans from start to terminal state"

	FindingEvaluatedMetricName        = "evidence_findings_evaluated_total"
	FindingEvaluatedMetricDescription = "The total number of evaluated findings by control and status"
	FindingMetricLabelControlID       = "control_id"
	FindingMetricLabelStatus          = "status"

	InventoryWarningMetricName        = "evidence_inventory_warnings_total"
	InventoryWarningMetricDescription = "The total number of degraded inventory lookups"

	ScansRunningMetricName        = "evidence_scans_running"
	ScansRunningMetricDescription = "The number of scans currently executing"
)

type Recorder interface {
	ScanStarted()
	ScanFinished(status string, duration time.Duration)
	FindingEvaluated(controlID, status string)
	InventoryWarnings(count int)
}
