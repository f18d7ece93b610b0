package scan

import "github.com/loxe-ai/evidence-tracer/pkg/models/domain"

type State string

const (
	StateStarted      State = "STARTED"
	StateCredentialed State = "CREDENTIALED"
	StateInventoried  State = "INVENTORIED"
	StateEvaluated    State = "EVALUATED"
	StateReconciled   State = "RECONCILED"
	StateCompleted    State = "COMPLETED"
	StateFailed       State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type EventType string

const (
	EventState   EventType = "state"
	EventTotal   EventType = "total"
	EventFinding EventType = "finding"
	EventDone    EventType = "done"
)

// Event is a progress notification. Total is set on EventTotal, Finding on
// EventFinding, Result and Err on EventDone.
type Event struct {
	Type    EventType
	State   State
	Total   int
	Finding *domain.EvidenceFinding
	Result  *Result
	Err     error
}

type Request struct {
	ScanID     string
	AccountID  string
	RoleARN    string
	ExternalID string
	Region     string
}

type Result struct {
	ScanID    string
	AccountID string
	State     State
	Score     int
	Findings  []domain.EvidenceFinding
	Warnings  []string
	Reason    string
}

func (r *Result) Failures() int {
	n := 0
	for _, f := range r.Findings {
		if f.Status != domain.FindingStatusPass {
			n++
		}
	}
	return n
}
