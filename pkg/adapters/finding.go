package adapters

import (
	"time"

	"github.com/google/uuid"
	"github.com/loxe-ai/evidence-tracer/pkg/models/api"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
)

// MapEvidenceToFinding converts an in-flight finding into a durable row. The
// caller resolves the asset id; severity comes from the control catalog.
func MapEvidenceToFinding(
	f domain.EvidenceFinding,
	assetID string,
	scanID string,
	severity domain.Severity,
	now time.Time,
) domain.Finding {
	return domain.Finding{
		ID:          uuid.NewString(),
		ControlID:   f.ControlID,
		Status:      f.Status,
		Description: f.Description,
		Severity:    severity,
		AssetID:     assetID,
		ScanID:      scanID,
		UpdatedAt:   now,
	}
}

func MapDomainFindingToStore(f domain.Finding) store.Finding {
	return store.Finding{
		ID:          f.ID,
		ControlID:   f.ControlID,
		Status:      string(f.Status),
		Description: f.Description,
		Severity:    string(f.Severity),
		AssetID:     f.AssetID,
		ScanID:      f.ScanID,
		UpdatedAt:   f.UpdatedAt,
	}
}

func MapStoreFindingToDomain(f store.Finding) domain.Finding {
	return domain.Finding{
		ID:          f.ID,
		ControlID:   f.ControlID,
		Status:      domain.FindingStatus(f.Status),
		Description: f.Description,
		Severity:    domain.Severity(f.Severity),
		AssetID:     f.AssetID,
		ScanID:      f.ScanID,
		UpdatedAt:   f.UpdatedAt,
	}
}

func MapDomainFindingToApi(f domain.Finding) api.Finding {
	return api.Finding{
		ID:          f.ID,
		ControlID:   f.ControlID,
		Status:      string(f.Status),
		Description: f.Description,
		Severity:    string(f.Severity),
		ScanID:      f.ScanID,
		UpdatedAt:   f.UpdatedAt,
	}
}
