package store

import "time"

type Finding struct {
	ID          string    `db:"id"`
	ControlID   string    `db:"control_id"`
	Status      string    `db:"status"`
	Description string    `db:"description"`
	Severity    string    `db:"severity"`
	AssetID     string    `db:"asset_id"`
	ScanID      string    `db:"scan_id"`
	UpdatedAt   time.Time `db:"updated_at"`
}
