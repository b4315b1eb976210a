package playback

import "fmt"

type State string

type Event string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

const (
	EventRequest Event = "request"
	EventStarted Event = "started"
	EventPause   Event = "pause"
	EventResume  Event = "resume"
	EventEnded   Event = "ended"
	EventStop    Event = "stop"
	EventFail    Event = "fail"
)

// Transition returns the state reached from current on event. A new request
// is accepted from any state since it supersedes the active session.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventRequest:
		return StateLoading, nil
	case EventStop, EventFail:
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		return current, invalidTransition(current, event)
	case StateLoading:
		switch event {
		case EventStarted:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventPause:
			return StatePaused, nil
		case EventEnded:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventResume:
			return StatePlaying, nil
		case EventEnded:
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
