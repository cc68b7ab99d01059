package gate

// View is what the gate renders for a state.
type View uint8

const (
	ViewLoading View = iota
	ViewError
	ViewReady
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewError:
		return "error"
	case ViewReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Policy selects which stage failures are fatal.
type Policy struct {
	// StrictStages makes a failure of any stage render the error view. When
	// false only the terminal stage is fatal and earlier failures render
	// the application with that stage's zero value.
	StrictStages bool
}

// Fatal reports whether a failure of s renders the error view.
func (p Policy) Fatal(s Stage) bool { return s == Terminal || p.StrictStages }

// Reduce applies ev to st and returns the new state. It never mutates st.
//
// Events that do not fit the current state are ignored: starting a stage
// that is not next, completing a stage that is not loading, or anything at
// all after the gate was closed.
func Reduce(st State, ev Event) State {
	next, _ := reduce(st, ev)
	return next
}

// reduce is Reduce that also reports whether ev was applied.
func reduce(st State, ev Event) (State, bool) {
	if st.Closed {
		return st, false
	}
	switch ev.Kind {
	case EventStarted:
		next, ok := st.Next()
		if !ok || next != ev.Stage {
			return st, false
		}
		st.Stages[ev.Stage] = StageState{Status: Loading, StartedAt: ev.At}

	case EventCompleted:
		if ev.Stage >= numStages || st.Stages[ev.Stage].Status != Loading {
			return st, false
		}
		ss := st.Stages[ev.Stage]
		ss.FinishedAt = ev.At
		if ev.Err != ErrKindNone {
			ss.Status, ss.Err, ss.Cause = Failed, ev.Err, ev.Cause
		} else {
			ss.Status = Loaded
			st.Resolved = mergeResolved(st.Resolved, ev.Stage, ev.Data)
		}
		st.Stages[ev.Stage] = ss

	case EventClosed:
		st.Closed = true
		for _, s := range Stages {
			if st.Stages[s].Status == Loading {
				st.Stages[s].Status = Failed
				st.Stages[s].Err = ErrKindCanceled
				st.Stages[s].FinishedAt = ev.At
			}
		}

	default:
		return st, false
	}
	return st, true
}

func mergeResolved(r Resolved, s Stage, data Resolved) Resolved {
	switch s {
	case StageWhitelist:
		r.Whitelist = data.Whitelist
	case StageWallet:
		r.Wallet = data.Wallet
	case StageSession:
		r.Session = data.Session
	}
	return r
}

// Decide maps st to exactly one view:
//  1. loading while any stage has not completed;
//  2. error when a stage that p treats as fatal failed;
//  3. ready otherwise.
func Decide(st State, p Policy) View {
	if st.Loading() {
		return ViewLoading
	}
	for _, s := range st.Failed() {
		if p.Fatal(s) {
			return ViewError
		}
	}
	return ViewReady
}
