package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/loxe-ai/evidence-tracer/pkg/models/api"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
)

func MapDomainAssetToStore(a domain.Asset, accountID string) (store.Asset, error) {
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return store.Asset{}, fmt.Errorf("marshal metadata for %s: %w", a.ResourceID, err)
	}

	status := a.Status
	if status == "" {
		status = domain.AssetStatusUnknown
	}

	return store.Asset{
		ID:         a.ID,
		AccountID:  accountID,
		ResourceID: a.ResourceID,
		Name:       a.Name,
		Type:       a.Type,
		Provider:   a.Provider,
		Region:     a.Region,
		Status:     string(status),
		Metadata:   raw,
		UpdatedAt:  a.UpdatedAt,
	}, nil
}

func MapStoreAssetToDomain(a store.Asset) domain.Asset {
	md := map[string]string{}
	if len(a.Metadata) > 0 {
		_ = json.Unmarshal(a.Metadata, &md)
	}
	return domain.Asset{
		ID:         a.ID,
		ResourceID: a.ResourceID,
		AccountID:  a.AccountID,
		Name:       a.Name,
		Type:       a.Type,
		Provider:   a.Provider,
		Region:     a.Region,
		Status:     domain.AssetStatus(a.Status),
		Metadata:   md,
		UpdatedAt:  a.UpdatedAt,
	}
}

// MapDomainAssetToApi attaches the asset's current findings.
func MapDomainAssetToApi(a domain.Asset, findings []domain.Finding) api.Asset {
	res := api.Asset{
		ID:         a.ID,
		ResourceID: a.ResourceID,
		Name:       a.Name,
		Type:       a.Type,
		Provider:   a.Provider,
		Region:     a.Region,
		Status:     string(a.Status),
		Metadata:   a.Metadata,
		UpdatedAt:  a.UpdatedAt,
		Findings:   []api.Finding{},
	}
	for _, f := range findings {
		if f.AssetID == a.ID {
			res.Findings = append(res.Findings, MapDomainFindingToApi(f))
		}
	}
	return res
}
