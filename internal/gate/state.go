package gate

import (
	"time"

	"dapp/internal/domain"
)

// Resolved is the data produced by the stages. A field keeps its zero value
// until its stage has loaded successfully. Route handlers must treat it as
// read-only.
type Resolved struct {
	Whitelist domain.Whitelist
	Wallet    domain.Wallet
	Session   domain.Session
}

// State is an immutable snapshot of the gate.
type State struct {
	Stages   [numStages]StageState
	Resolved Resolved
	Closed   bool
}

// Stage returns the state of s.
func (st State) Stage(s Stage) StageState {
	if s >= numStages {
		return StageState{}
	}
	return st.Stages[s]
}

// Loading reports whether any stage, checked in dependency order, has not
// completed yet.
func (st State) Loading() bool {
	for _, s := range Stages {
		if st.Stages[s].Loading() {
			return true
		}
	}
	return false
}

// Failed returns the stages that completed with an error, in order.
func (st State) Failed() []Stage {
	var out []Stage
	for _, s := range Stages {
		if st.Stages[s].Status == Failed {
			out = append(out, s)
		}
	}
	return out
}

// Next returns the stage that may be started now: the first pending stage
// whose predecessors have all completed. ok is false when nothing can start.
func (st State) Next() (s Stage, ok bool) {
	if st.Closed {
		return 0, false
	}
	for _, s := range Stages {
		switch st.Stages[s].Status {
		case Pending:
			return s, true
		case Loading:
			return 0, false
		}
	}
	return 0, false
}

// EventKind distinguishes stage lifecycle events.
type EventKind uint8

const (
	EventStarted EventKind = iota
	EventCompleted
	EventClosed
)

// Event is one input to Reduce.
type Event struct {
	Stage Stage
	Kind  EventKind
	At    time.Time

	// Err and Cause describe a failed completion.
	Err   ErrorKind
	Cause error
	// Data carries the completed stage's value in its field; other fields
	// are ignored.
	Data Resolved
}

// Started returns the event for starting s.
func Started(s Stage, at time.Time) Event {
	return Event{Stage: s, Kind: EventStarted, At: at}
}

// Closed returns the event for closing the gate.
func Closed(at time.Time) Event {
	return Event{Kind: EventClosed, At: at}
}

// WhitelistDone returns the completion event of the whitelist stage.
func WhitelistDone(r Result[domain.Whitelist], at time.Time) Event {
	return Event{
		Stage: StageWhitelist, Kind: EventCompleted, At: at,
		Err: r.Err, Cause: r.Cause, Data: Resolved{Whitelist: r.Value},
	}
}

// WalletDone returns the completion event of the wallet stage.
func WalletDone(r Result[domain.Wallet], at time.Time) Event {
	return Event{
		Stage: StageWallet, Kind: EventCompleted, At: at,
		Err: r.Err, Cause: r.Cause, Data: Resolved{Wallet: r.Value},
	}
}

// SessionDone returns the completion event of the session stage.
func SessionDone(r Result[domain.Session], at time.Time) Event {
	return Event{
		Stage: StageSession, Kind: EventCompleted, At: at,
		Err: r.Err, Cause: r.Cause, Data: Resolved{Session: r.Value},
	}
}
