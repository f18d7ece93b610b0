package store

import (
	"time"
)

type Asset struct {
	ID         string    `db:"id"`
	AccountID  string    `db:"account_id"`
	ResourceID string    `db:"resource_id"`
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	Provider   string    `db:"provider"`
	Region     string    `db:"region"`
	Status     string    `db:"status"`
	Metadata   []byte    `db:"metadata"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type AssetRef struct {
	ID         string `db:"id"`
	ResourceID string `db:"resource_id"`
}
