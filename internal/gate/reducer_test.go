package gate

import (
	"errors"
	"testing"
	"time"

	"dapp/internal/domain"
)

var t0 = time.Unix(1_700_000_000, 0)

func allLoaded() State {
	st := State{}
	st = Reduce(st, Started(StageWhitelist, t0))
	st = Reduce(st, WhitelistDone(Ok(domain.Whitelist{FiatWhitelist: []string{"EUR"}}), t0))
	st = Reduce(st, Started(StageWallet, t0))
	st = Reduce(st, WalletDone(Ok(domain.Wallet{Account: "0xabc"}), t0))
	st = Reduce(st, Started(StageSession, t0))
	st = Reduce(st, SessionDone(Ok(domain.Session{CurrentUser: &domain.User{Name: "A"}}), t0))
	return st
}

func TestZeroStateIsLoading(t *testing.T) {
	if v := Decide(State{}, Policy{}); v != ViewLoading {
		t.Fatalf("view = %s", v)
	}
	if next, ok := (State{}).Next(); !ok || next != StageWhitelist {
		t.Fatalf("next = %s, %v", next, ok)
	}
}

func TestAllLoadedIsReady(t *testing.T) {
	st := allLoaded()
	if st.Loading() {
		t.Fatalf("state still loading: %+v", st.Stages)
	}
	if v := Decide(st, Policy{}); v != ViewReady {
		t.Fatalf("view = %s", v)
	}
	if st.Resolved.Wallet.Account != "0xabc" || st.Resolved.Session.CurrentUser.Name != "A" {
		t.Fatalf("resolved = %+v", st.Resolved)
	}
	if len(st.Resolved.Whitelist.FiatWhitelist) != 1 {
		t.Fatalf("whitelist not resolved")
	}
}

func TestStartOutOfOrderIsIgnored(t *testing.T) {
	st := Reduce(State{}, Started(StageWallet, t0))
	if st.Stage(StageWallet).Status != Pending {
		t.Fatalf("wallet started before whitelist completed")
	}
	st = Reduce(st, Started(StageWhitelist, t0))
	st = Reduce(st, Started(StageWallet, t0))
	if st.Stage(StageWallet).Status != Pending {
		t.Fatalf("wallet started while whitelist still loading")
	}
}

func TestCompletionIsFireOnce(t *testing.T) {
	st := Reduce(State{}, Started(StageWhitelist, t0))
	st = Reduce(st, WhitelistDone(Ok(domain.Whitelist{Enforced: true}), t0))
	again := Reduce(st, WhitelistDone(Fail[domain.Whitelist](ErrKindStageInit, errors.New("late")), t0))
	if again.Stage(StageWhitelist).Status != Loaded || !again.Resolved.Whitelist.Enforced {
		t.Fatalf("second completion changed the stage: %+v", again.Stage(StageWhitelist))
	}
	if _, applied := reduce(st, WhitelistDone(Ok(domain.Whitelist{}), t0)); applied {
		t.Fatalf("second completion reported as applied")
	}
}

func TestCompletionWithoutStartIsIgnored(t *testing.T) {
	st := Reduce(State{}, SessionDone(Ok(domain.Session{}), t0))
	if st.Stage(StageSession).Status != Pending {
		t.Fatalf("session completed without being started")
	}
}

func TestTerminalFailureRendersError(t *testing.T) {
	// Whatever the earlier stages did, a failed session is fatal.
	for _, earlierFails := range []bool{false, true} {
		st := Reduce(State{}, Started(StageWhitelist, t0))
		if earlierFails {
			st = Reduce(st, WhitelistDone(Fail[domain.Whitelist](ErrKindStageInit, errors.New("wl")), t0))
		} else {
			st = Reduce(st, WhitelistDone(Ok(domain.Whitelist{}), t0))
		}
		st = Reduce(st, Started(StageWallet, t0))
		st = Reduce(st, WalletDone(Ok(domain.Wallet{}), t0))
		st = Reduce(st, Started(StageSession, t0))
		st = Reduce(st, SessionDone(Fail[domain.Session](ErrKindStageInit, errors.New("boom")), t0))

		if v := Decide(st, Policy{}); v != ViewError {
			t.Fatalf("earlierFails=%v: view = %s", earlierFails, v)
		}
		if st.Stage(StageSession).Cause == nil || st.Stage(StageSession).Err != ErrKindStageInit {
			t.Fatalf("session failure not recorded: %+v", st.Stage(StageSession))
		}
	}
}

func TestEarlierFailureIsNonFatalByDefault(t *testing.T) {
	st := Reduce(State{}, Started(StageWhitelist, t0))
	st = Reduce(st, WhitelistDone(Ok(domain.Whitelist{}), t0))
	st = Reduce(st, Started(StageWallet, t0))
	st = Reduce(st, WalletDone(Fail[domain.Wallet](ErrKindStageInit, errors.New("no node")), t0))

	if next, ok := st.Next(); !ok || next != StageSession {
		t.Fatalf("session should start after a failed wallet stage")
	}
	st = Reduce(st, Started(StageSession, t0))
	st = Reduce(st, SessionDone(Ok(domain.Session{}), t0))

	if v := Decide(st, Policy{}); v != ViewReady {
		t.Fatalf("default policy view = %s", v)
	}
	if v := Decide(st, Policy{StrictStages: true}); v != ViewError {
		t.Fatalf("strict policy view = %s", v)
	}
	if failed := st.Failed(); len(failed) != 1 || failed[0] != StageWallet {
		t.Fatalf("failed = %v", failed)
	}
	if st.Resolved.Wallet.Connected() {
		t.Fatalf("failed wallet must resolve to the zero wallet")
	}
}

func TestClosedIgnoresLateEvents(t *testing.T) {
	st := Reduce(State{}, Started(StageWhitelist, t0))
	st = Reduce(st, Closed(t0))
	if !st.Closed {
		t.Fatalf("not closed")
	}
	ws := st.Stage(StageWhitelist)
	if ws.Status != Failed || ws.Err != ErrKindCanceled {
		t.Fatalf("in-flight stage after close = %+v", ws)
	}
	late := Reduce(st, WhitelistDone(Ok(domain.Whitelist{Enforced: true}), t0))
	if late.Stage(StageWhitelist).Status != Failed || late.Resolved.Whitelist.Enforced {
		t.Fatalf("late completion changed a closed state")
	}
	if _, ok := late.Next(); ok {
		t.Fatalf("closed state offers a next stage")
	}
}

func TestFailWithoutCause(t *testing.T) {
	r := Fail[int](ErrKindNone, nil)
	if !r.Failed() || r.Err != ErrKindStageInit || r.Cause == nil {
		t.Fatalf("r = %+v", r)
	}
}
