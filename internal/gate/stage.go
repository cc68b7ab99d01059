package gate

import (
	"errors"
	"time"
)

// Stage identifies one start-up stage. Stages are declared in dependency
// order.
type Stage uint8

const (
	StageWhitelist Stage = iota
	StageWallet
	StageSession

	numStages
)

// Stages lists every stage in dependency order.
var Stages = [numStages]Stage{StageWhitelist, StageWallet, StageSession}

// Terminal is the last stage. Its failure is always fatal.
const Terminal = StageSession

func (s Stage) String() string {
	switch s {
	case StageWhitelist:
		return "whitelist"
	case StageWallet:
		return "wallet"
	case StageSession:
		return "session"
	default:
		return "unknown"
	}
}

// Status is the lifecycle position of a stage.
type Status uint8

const (
	// Pending means the stage has not been started.
	Pending Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind classifies a stage failure.
type ErrorKind uint8

const (
	ErrKindNone ErrorKind = iota
	// ErrKindStageInit means the stage initializer returned an error.
	ErrKindStageInit
	// ErrKindCanceled means the gate was closed or its context ended while
	// the stage was in flight.
	ErrKindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNone:
		return "none"
	case ErrKindStageInit:
		return "stage_init"
	case ErrKindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// StageState is the observable state of one stage.
type StageState struct {
	Status Status
	Err    ErrorKind
	// Cause is the initializer error for failed stages.
	Cause      error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Loading reports whether the stage has not completed yet.
func (s StageState) Loading() bool { return s.Status == Pending || s.Status == Loading }

// Done reports whether the stage has completed, successfully or not.
func (s StageState) Done() bool { return s.Status == Loaded || s.Status == Failed }

// Duration is how long the stage took, zero until it completes.
func (s StageState) Duration() time.Duration {
	if !s.Done() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Result is the outcome of one stage initializer: a value, or an error kind
// with its cause.
type Result[T any] struct {
	Value T
	Err   ErrorKind
	Cause error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail wraps a failure. A nil cause is replaced by a generic error so that
// failed results always carry one.
func Fail[T any](kind ErrorKind, cause error) Result[T] {
	if kind == ErrKindNone {
		kind = ErrKindStageInit
	}
	if cause == nil {
		cause = errors.New(kind.String())
	}
	return Result[T]{Err: kind, Cause: cause}
}

// Failed reports whether r is a failure.
func (r Result[T]) Failed() bool { return r.Err != ErrKindNone }
