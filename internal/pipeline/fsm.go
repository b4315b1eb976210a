package pipeline

import "fmt"

type State string

type Event string

const (
	StateIdle            State = "idle"
	StateTranslating     State = "translating"
	StateGenerating      State = "generating"
	StateBackTranslating State = "back_translating"
)

const (
	EventStart          Event = "start"
	EventTranslated     Event = "translated"
	EventGenerated      Event = "generated"
	EventBackTranslated Event = "back_translated"
	EventFail           Event = "fail"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Transition returns the state reached from current on event. A failure
// from any in-flight stage returns the run to idle.
func Transition(current State, event Event) (State, error) {
	if event == EventFail && current != StateIdle {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateTranslating, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranslating:
		switch event {
		case EventTranslated:
			return StateGenerating, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateGenerating:
		switch event {
		case EventGenerated:
			return StateBackTranslating, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateBackTranslating:
		switch event {
		case EventBackTranslated:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
