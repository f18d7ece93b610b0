package api

import (
	"encoding/json"
	"time"
)

type StartScanRequest struct {
	ScanID     string `json:"scan_id,omitempty"`
	AccountID  string `json:"account_id"`
	RoleARN    string `json:"role_arn"`
	ExternalID string `json:"external_id"`
	Region     string `json:"region,omitempty"`
}

type StartScanResponse struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}

type Scan struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Status    string          `json:"status"`
	Score     int             `json:"score"`
	Findings  json.RawMessage `json:"findings"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Error struct {
	Message string `json:"error"`
}
