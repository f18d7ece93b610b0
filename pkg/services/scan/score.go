package scan

import (
	"math"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/samber/lo"
)

// Score is the percentage of passing findings, rounded half away from zero.
// Both FAIL and ERROR count against it. An empty scan scores 100.
func Score(findings []domain.EvidenceFinding) int {
	total := len(findings)
	if total == 0 {
		return 100
	}

	failures := lo.CountBy(findings, func(f domain.EvidenceFinding) bool {
		return f.Status != domain.FindingStatusPass
	})

	score := int(math.Round(100 * float64(total-failures) / float64(total)))
	return min(max(score, 0), 100)
}
