package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/loxe-ai/evidence-tracer/pkg/services/freshness"
	"github.com/rs/zerolog"
)

// Control is a single compliance check. Check performs read-only provider
// calls and must map every failure to an ERROR finding instead of failing.
// region is where the resource lives; empty or UNKNOWN means the session
// region.
type Control interface {
	ID() string
	Check(ctx context.Context, session *credentials.Session, resourceID, region string) domain.EvidenceFinding
}

type Evaluator interface {
	Evaluate(ctx context.Context, session *credentials.Session, resourceID, region string) []domain.EvidenceFinding
	Controls() []string
}

type evaluator struct {
	controls []Control
	now      func() time.Time
}

func NewEvaluator(controls ...Control) (Evaluator, error) {
	return NewEvaluatorWithClock(time.Now, controls...)
}

func NewEvaluatorWithClock(now func() time.Time, controls ...Control) (Evaluator, error) {
	seen := make(map[string]struct{}, len(controls))
	for _, c := range controls {
		if _, exists := seen[c.ID()]; exists {
			return nil, fmt.Errorf("duplicate control: %s", c.ID())
		}
		seen[c.ID()] = struct{}{}
	}

	if len(controls) == 0 {
		return nil, fmt.Errorf("at least one control must be provided")
	}

	return &evaluator{controls: controls, now: now}, nil
}

func (e *evaluator) Controls() []string {
	ids := make([]string, 0, len(e.controls))
	for _, c := range e.controls {
		ids = append(ids, c.ID())
	}
	return ids
}

// Evaluate runs every control against resourceID, in registration order.
func (e *evaluator) Evaluate(
	ctx context.Context,
	session *credentials.Session,
	resourceID string,
	region string,
) []domain.EvidenceFinding {
	findings := make([]domain.EvidenceFinding, 0, len(e.controls))
	for _, c := range e.controls {
		f := e.check(ctx, c, session, resourceID, region)
		if f.ControlID == "" {
			f.ControlID = c.ID()
		}
		if f.Resource == "" {
			f.Resource = resourceID
		}
		if f.Evidence == nil {
			f.Evidence = map[string]any{}
		}
		findings = append(findings, freshness.Stamp(f, e.now().UTC()))
	}
	return findings
}

func (e *evaluator) check(
	ctx context.Context,
	c Control,
	session *credentials.Session,
	resourceID string,
	region string,
) (finding domain.EvidenceFinding) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("control", c.ID()).
				Str("resource", resourceID).
				Interface("panic", r).
				Msg("control panicked")
			finding = domain.EvidenceFinding{
				ControlID:   c.ID(),
				Resource:    resourceID,
				Status:      domain.FindingStatusError,
				Description: fmt.Sprintf("Could not check resource '%s'.", resourceID),
				Evidence:    map[string]any{"error": fmt.Sprint(r)},
			}
		}
	}()

	if session == nil {
		return domain.EvidenceFinding{
			ControlID:   c.ID(),
			Resource:    resourceID,
			Status:      domain.FindingStatusError,
			Description: fmt.Sprintf("Could not check resource '%s'.", resourceID),
			Evidence:    map[string]any{"error": "no credential session"},
		}
	}

	return c.Check(ctx, session, resourceID, region)
}
