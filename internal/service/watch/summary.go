package watch

// Summarizer emits the full state on every slow tick, changed or not.
type Summarizer struct {
	state    *State
	notifier Notifier
}

func NewSummarizer(state *State, notifier Notifier) *Summarizer {
	return &Summarizer{state: state, notifier: notifier}
}

func (s *Summarizer) Summarize() {
	s.notifier.OnSummary(s.state.Snapshot())
}
