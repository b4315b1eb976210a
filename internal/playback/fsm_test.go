package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionLifecycle(t *testing.T) {
	s := StateIdle
	for _, step := range []struct {
		event Event
		want  State
	}{
		{EventRequest, StateLoading},
		{EventStarted, StatePlaying},
		{EventPause, StatePaused},
		{EventResume, StatePlaying},
		{EventEnded, StateIdle},
	} {
		next, err := Transition(s, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next)
		s = next
	}
}

func TestTransitionRequestAndStopFromAnyState(t *testing.T) {
	for _, state := range []State{StateIdle, StateLoading, StatePlaying, StatePaused} {
		next, err := Transition(state, EventRequest)
		require.NoError(t, err)
		require.Equal(t, StateLoading, next)

		for _, event := range []Event{EventStop, EventFail} {
			next, err = Transition(state, event)
			require.NoError(t, err)
			require.Equal(t, StateIdle, next)
		}
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle started", state: StateIdle, event: EventStarted},
		{name: "idle pause", state: StateIdle, event: EventPause},
		{name: "loading pause", state: StateLoading, event: EventPause},
		{name: "loading ended", state: StateLoading, event: EventEnded},
		{name: "playing resume", state: StatePlaying, event: EventResume},
		{name: "paused pause", state: StatePaused, event: EventPause},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.ErrorContains(t, err, "invalid transition")
		})
	}
}
