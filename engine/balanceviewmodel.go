package engine

import (
	"bmon/interfaces"
	"time"
)

// Must be JSON serializable
type BalanceViewModel struct {
	commands map[string]interfaces.Command

	c       *ViewModel
	sub     interfaces.Subscription
	isClean bool

	Value       string `json:"value,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	IsFetching  bool   `json:"isFetching"`
	FetchFailed bool   `json:"fetchFailed"`
	IsRedacted  bool   `json:"isRedacted"`
}

func NewBalanceViewModel(c *ViewModel) *BalanceViewModel {
	v := &BalanceViewModel{c: c}

	// supported commands; each one is a discrete event for the dispatcher:
	v.commands = map[string]interfaces.Command{
		"appeared":     &dispatchEventCommand{c, EventViewAppeared},
		"refresh":      &dispatchEventCommand{c, EventRefreshRequested},
		"foregrounded": &dispatchEventCommand{c, EventForegrounded},
		"backgrounded": &dispatchEventCommand{c, EventBackgrounded},
	}

	return v
}

func (v *BalanceViewModel) Init() {
	// mirror every state snapshot into the view fields; the subscription
	// delivers the current snapshot immediately:
	v.sub = v.c.store.Subscribe(v)
}

// Notify implements interfaces.Observer for Store snapshots.
func (v *BalanceViewModel) Notify(object interface{}) {
	state, ok := object.(ViewState)
	if !ok {
		return
	}

	v.IsFetching = state.IsFetching
	v.FetchFailed = state.FetchFailed
	v.IsRedacted = state.IsRedacted

	if state.IsRedacted {
		// the sensitive value must not reach the view while redacted:
		v.Value = ""
		v.UpdatedAt = ""
	} else {
		if state.Value != nil {
			v.Value = state.Value.StringFixed(2)
		} else {
			v.Value = ""
		}
		if state.UpdatedAt != nil {
			v.UpdatedAt = state.UpdatedAt.Format(time.RFC3339)
		} else {
			v.UpdatedAt = ""
		}
	}

	v.MarkDirty()
}

func (v *BalanceViewModel) IsDirty() bool {
	return !v.isClean
}

func (v *BalanceViewModel) ClearDirty() {
	v.isClean = true
}

func (v *BalanceViewModel) MarkDirty() {
	v.isClean = false
	v.c.NotifyViewOf("balance", v)
}

// Commands:
func (v *BalanceViewModel) CommandFor(command string) (ce interfaces.Command, err error) {
	var ok bool
	ce, ok = v.commands[command]
	if !ok {
		err = errNoCommand(command)
	}
	return
}

type dispatchEventCommand struct {
	c  *ViewModel
	ev Event
}

func (ce *dispatchEventCommand) CreateArgs() interfaces.CommandArgs { return nil }
func (ce *dispatchEventCommand) Execute(_ interfaces.CommandArgs) error {
	ce.c.Dispatch(ce.ev)
	return nil
}
