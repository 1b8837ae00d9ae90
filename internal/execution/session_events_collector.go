package execution

import (
	copilot "github.com/github/copilot-sdk/go"
)

const sessionFailedUnknown = "session failed with unknown error"

// SessionEventsCollector accumulates the assistant's text from a session.
type SessionEventsCollector struct {
	sessionEvents []copilot.SessionEvent
	outputParts   []string
	errorMsg      string
	done          chan struct{}
}

// NewSessionEventsCollector creates a new SessionEventsCollector.
func NewSessionEventsCollector() *SessionEventsCollector {
	return &SessionEventsCollector{
		done: make(chan struct{}),
	}
}

// SessionEvents returns the collected session events.
func (coll *SessionEventsCollector) SessionEvents() []copilot.SessionEvent {
	return coll.sessionEvents
}

// OutputParts returns the collected output text parts.
func (coll *SessionEventsCollector) OutputParts() []string {
	return coll.outputParts
}

// ErrorMessage returns the error message, if any.
func (coll *SessionEventsCollector) ErrorMessage() string {
	return coll.errorMsg
}

// Done returns the channel that is closed when the session completes.
func (coll *SessionEventsCollector) Done() <-chan struct{} {
	return coll.done
}

// On is a callback, intended to be passed to [copilot.Session.On] to receive
// events in real-time.
func (coll *SessionEventsCollector) On(event copilot.SessionEvent) {
	switch event.Type {
	case copilot.AssistantMessage:
		// Deltas repeat the final message's content, so only whole messages count.
		if event.Data.Content != nil {
			coll.outputParts = append(coll.outputParts, *event.Data.Content)
		}

	// these are both termination events
	case copilot.SessionIdle, copilot.SessionError:
		if event.Type == copilot.SessionError {
			if event.Data.Message == nil || *event.Data.Message == "" {
				coll.errorMsg = sessionFailedUnknown
			} else {
				coll.errorMsg = *event.Data.Message
			}
		}

		select {
		case <-coll.done:
		default:
			close(coll.done)
		}
	}

	coll.sessionEvents = append(coll.sessionEvents, event)
}
