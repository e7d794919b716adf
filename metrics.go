package identity

// Outcome labels reported to Metrics.
const (
	OutcomeAccepted            = "accepted"
	OutcomeUserNotFound        = "user_not_found"
	OutcomeAccountSuspended    = "account_suspended"
	OutcomeSessionInvalid      = "session_invalid"
	OutcomeError               = "error"
	OutcomeLinked              = "linked"
	OutcomeLinkedExisting      = "linked_existing"
	OutcomeCreated             = "created"
	OutcomeConflictRetried     = "conflict_retried"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
)

// Metrics receives counters for validation, resolution and refresh activity.
type Metrics interface {
	ValidationOutcome(outcome string)
	ResolutionOutcome(outcome string)
	SessionRefreshed(err error)
}

type noopMetrics struct{}

func (noopMetrics) ValidationOutcome(string) {}
func (noopMetrics) ResolutionOutcome(string) {}
func (noopMetrics) SessionRefreshed(error)   {}

// NoopMetrics returns a Metrics implementation that discards everything.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

func normalizeMetrics(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
