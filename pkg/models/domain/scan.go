package domain

import "time"

type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "RUNNING"
	ScanStatusCompleted ScanStatus = "COMPLETED"
	ScanStatusFailed    ScanStatus = "FAILED"
)

type Scan struct {
	ID        string
	AccountID string
	Status    ScanStatus
	Score     int
	Findings  []byte // JSON snapshot of every EvidenceFinding
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Scan) Finished() bool {
	return s.Status != ScanStatusRunning
}
