package engine

import "bmon/fetch"

// Event is a discrete signal from the view or environment to the dispatcher.
type Event int

const (
	// the balance screen became visible:
	EventViewAppeared Event = iota
	// the user asked for a fresh balance:
	EventRefreshRequested
	// the app regained focus:
	EventForegrounded
	// the app lost focus; the balance is redacted until foregrounded:
	EventBackgrounded
)

func (e Event) String() string {
	switch e {
	case EventViewAppeared:
		return "viewAppeared"
	case EventRefreshRequested:
		return "refreshRequested"
	case EventForegrounded:
		return "foregrounded"
	case EventBackgrounded:
		return "backgrounded"
	}
	return "unknown"
}

// message is the closed set of items carried on the dispatcher queue. Events
// come from the view; fetch completions re-enter through the same queue so
// every state mutation happens on the single consumer goroutine.
type message interface {
	message()
}

type eventMessage struct {
	event Event
}

type fetchDoneMessage struct {
	result fetch.Result
}

// sourceMessage switches the active balance source; a nil service disconnects.
type sourceMessage struct {
	name    string
	addr    string
	service fetch.Service
}

func (eventMessage) message()     {}
func (fetchDoneMessage) message() {}
func (sourceMessage) message()    {}
