package postgres

import "errors"

var (
	ErrLeaseHeld      = errors.New("account is locked by another scan")
	ErrScanNotRunning = errors.New("scan is not running")
	ErrScanNotFound   = errors.New("scan not found")
	ErrScanExists     = errors.New("scan already exists")
	ErrAssetNotFound  = errors.New("asset not found")
)
