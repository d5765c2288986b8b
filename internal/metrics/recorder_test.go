package metrics

import (
	"testing"
	"time"
)

// Compile-time checks that both implementations satisfy Recorder.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveCommand("fetch", time.Second, OutcomeSuccess)
	r.ObservePoll("app", time.Second, OutcomeCanceled)
	r.IncShallowEscalation(EscalationFull)
	r.AddRevisionsDetected("app", 2)
	r.IncPollRetry("app")
}
