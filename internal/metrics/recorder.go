// Package metrics records display-text activity. Components take a Recorder;
// NoopRecorder is the default when metrics are disabled.
package metrics

// Outcome labels for title lookups.
type Outcome string

const (
	OutcomeHit      Outcome = "hit"
	OutcomeMiss     Outcome = "miss"
	OutcomeAbsent   Outcome = "absent"
	OutcomeFailed   Outcome = "failed"
	OutcomeDisabled Outcome = "disabled"
)

// Recorder defines the observability hooks of the display-text core.
type Recorder interface {
	IncAutoInsert(embed bool)
	IncTrigger()
	IncSuppressed()
	IncAccept(label string)
	IncTitleLookup(outcome Outcome)
	SetOpenSessions(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncAutoInsert(bool)     {}
func (NoopRecorder) IncTrigger()            {}
func (NoopRecorder) IncSuppressed()         {}
func (NoopRecorder) IncAccept(string)       {}
func (NoopRecorder) IncTitleLookup(Outcome) {}
func (NoopRecorder) SetOpenSessions(int)    {}
