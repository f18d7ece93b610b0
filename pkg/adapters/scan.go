package adapters

import (
	"encoding/json"

	"github.com/loxe-ai/evidence-tracer/pkg/models/api"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
)

func MapStoreScanToDomain(s *store.Scan) *domain.Scan {
	if s == nil {
		return nil
	}

	var reason *string
	if s.Error.Valid {
		msg := s.Error.String
		reason = &msg
	}

	return &domain.Scan{
		ID:        s.ID,
		AccountID: s.AccountID,
		Status:    domain.ScanStatus(s.Status),
		Score:     s.Score,
		Findings:  s.Findings,
		Error:     reason,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func MapDomainScanToApi(s domain.Scan) api.Scan {
	findings := json.RawMessage("[]")
	if len(s.Findings) > 0 {
		findings = json.RawMessage(s.Findings)
	}

	res := api.Scan{
		ID:        s.ID,
		AccountID: s.AccountID,
		Status:    string(s.Status),
		Score:     s.Score,
		Findings:  findings,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Error != nil {
		res.Error = *s.Error
	}
	return res
}
