package domain

import "time"

type AssetStatus string

const (
	AssetStatusUnknown AssetStatus = "UNKNOWN"
	AssetStatusPass    AssetStatus = "PASS"
	AssetStatusFail    AssetStatus = "FAIL"
	AssetStatusError   AssetStatus = "ERROR"
)

const (
	ProviderAWS       = "AWS"
	AssetTypeS3Bucket = "S3_BUCKET"
	RegionUnknown     = "unknown"
)

type Asset struct {
	ID         string            // internal id, assigned by storage on first insert
	ResourceID string            // arn:aws:s3:::my-bucket
	AccountID  string            // owning customer account
	Name       string            // my-bucket
	Type       string            // S3_BUCKET
	Provider   string            // AWS
	Region     string            // us-east-1, or "unknown"
	Status     AssetStatus       // UNKNOWN until first evaluated
	Metadata   map[string]string // creation_date, owner_id
	UpdatedAt  time.Time
}

// Inventory is the outcome of a collection pass. Warnings describe degraded
// lookups; an empty Assets slice with no warnings means the account has no
// resources of the supported type.
type Inventory struct {
	Assets   []Asset
	Warnings []string
}

func (i Inventory) Degraded() bool {
	return len(i.Warnings) > 0
}

func (i Inventory) ResourceIDs() []string {
	ids := make([]string, 0, len(i.Assets))
	for _, a := range i.Assets {
		ids = append(ids, a.ResourceID)
	}
	return ids
}
