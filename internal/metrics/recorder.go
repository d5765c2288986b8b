package metrics

import "time"

// Outcome labels the result of a command or poll.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFailure      Outcome = "failure"
	OutcomeSpawnFailure Outcome = "spawn_failure"
	OutcomeCanceled     Outcome = "canceled"
)

// Escalation steps of a shallow working copy.
const (
	EscalationAdditional = "additional"
	EscalationFull       = "full"
)

// Recorder defines observability hooks for git invocations and material polls.
// Implementations must tolerate being called from several goroutines.
type Recorder interface {
	ObserveCommand(subcommand string, d time.Duration, outcome Outcome)
	ObservePoll(material string, d time.Duration, outcome Outcome)
	IncShallowEscalation(step string)
	AddRevisionsDetected(material string, n int)
	IncPollRetry(material string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCommand(string, time.Duration, Outcome) {}
func (NoopRecorder) ObservePoll(string, time.Duration, Outcome)    {}
func (NoopRecorder) IncShallowEscalation(string)                   {}
func (NoopRecorder) AddRevisionsDetected(string, int)              {}
func (NoopRecorder) IncPollRetry(string)                           {}
