package freshness

import (
	"time"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
)

const (
	StaleAfterDays  = 30
	ExpireAfterDays = 90
	day             = 24 * time.Hour
)

// AgeInDays returns the number of whole days between collectedAt and now.
// Evidence stamped in the future is treated as zero days old.
func AgeInDays(collectedAt, now time.Time) int {
	age := now.Sub(collectedAt)
	if age < 0 {
		return 0
	}
	return int(age / day)
}

func Classify(collectedAt, now time.Time) domain.Freshness {
	days := AgeInDays(collectedAt, now)
	switch {
	case days > ExpireAfterDays:
		return domain.FreshnessExpired
	case days > StaleAfterDays:
		return domain.FreshnessStale
	default:
		return domain.FreshnessFresh
	}
}

// Stamp sets the collection timestamp (when missing) and the freshness of f.
// Freshness is fixed here and never recomputed on read.
func Stamp(f domain.EvidenceFinding, now time.Time) domain.EvidenceFinding {
	if f.Timestamp.IsZero() {
		f.Timestamp = now
	}
	f.Freshness = Classify(f.Timestamp, now)
	return f
}
