package monitor

import "time"

// Outcome classifies how one poll cycle ended. Exactly one outcome is
// produced per cycle; only OutcomeDelivered moves the processed marker.
type Outcome string

const (
	OutcomeNoNewPost        Outcome = "no_new_post"
	OutcomeDelivered        Outcome = "delivered"
	OutcomeFetchFailed      Outcome = "fetch_failed"
	OutcomeExtractFailed    Outcome = "extract_failed"
	OutcomeSummarizeFailed  Outcome = "summarize_failed"
	OutcomeSummarizeBlocked Outcome = "summarize_blocked"
	OutcomeDeliveryFailed   Outcome = "delivery_failed"
)

// CycleResult captures one cycle's outcome for status reporting.
type CycleResult struct {
	Outcome Outcome
	PostURL string
	Err     error
	At      time.Time
}
