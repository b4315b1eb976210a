package pipeline

// Observer receives run progress. Calls arrive on the run's goroutine, so
// implementations must not block for long.
type Observer interface {
	StateChanged(runID string, state State)
	RunFinished(result Result)
}

type nopObserver struct{}

func (nopObserver) StateChanged(string, State) {}
func (nopObserver) RunFinished(Result)         {}

type multiObserver []Observer

// Observers fans progress out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) StateChanged(runID string, state State) {
	for _, o := range m {
		o.StateChanged(runID, state)
	}
}

func (m multiObserver) RunFinished(result Result) {
	for _, o := range m {
		o.RunFinished(result)
	}
}
