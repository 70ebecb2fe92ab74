package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateUploading State = "uploading"
	StateError     State = "error"
)

const (
	EventStart    Event = "start"
	EventStop     Event = "stop"
	EventFinalize Event = "finalize"
	EventAnalyzed Event = "analyzed"
	EventDiscard  Event = "discard"
	EventFail     Event = "fail"
	EventReset    Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopping:
		switch event {
		case EventFinalize:
			return StateUploading, nil
		case EventDiscard:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateUploading:
		switch event {
		case EventAnalyzed:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		case EventStart:
			// A failed upload leaves the error badge up until the next attempt.
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a recording or its upload is in flight.
func Busy(state State) bool {
	return state == StateRecording || state == StateStopping || state == StateUploading
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
