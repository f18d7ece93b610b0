package store

import (
	"database/sql"
	"time"
)

type Scan struct {
	ID        string         `db:"id"`
	AccountID string         `db:"account_id"`
	Status    string         `db:"status"`
	Score     int            `db:"score"`
	Findings  []byte         `db:"findings"`
	Error     sql.NullString `db:"error"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type ScanUpdate struct {
	ID       string
	Status   string
	Score    int
	Findings []byte
	Error    *string
}
