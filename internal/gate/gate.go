package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dapp/internal/domain"
	"dapp/internal/route"
)

// ErrClosed is returned by Wait when the gate is closed before every stage
// completed.
var ErrClosed = errors.New("gate closed")

// ErrAlreadyStarted is returned by Start on its second call.
var ErrAlreadyStarted = errors.New("gate already started")

// Initializers are the three stage initializers. Each runs once, on its own
// goroutine, with the value resolved by the stage before it. A nil
// initializer resolves its stage to the zero value.
type Initializers struct {
	Whitelist func(ctx context.Context) (domain.Whitelist, error)
	Wallet    func(ctx context.Context, wl domain.Whitelist) (domain.Wallet, error)
	Session   func(ctx context.Context, w domain.Wallet) (domain.Session, error)
}

// Option configures a Gate.
type Option func(*Gate)

// WithPolicy sets which stage failures are fatal.
func WithPolicy(p Policy) Option {
	return func(g *Gate) { g.policy = p }
}

// WithLogger sets the gate logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRegisterer registers gate metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(g *Gate) { g.reg = reg }
}

// WithViews replaces the loading and error views.
func WithViews(v Views) Option {
	return func(g *Gate) {
		if v != nil {
			g.views = v
		}
	}
}

// WithClock sets the time source used for stage timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// Gate sequences the stage initializers and serves the routed application
// once they are done.
type Gate struct {
	init   Initializers
	table  *route.Table[Handler]
	policy Policy
	views  Views
	logger *slog.Logger
	reg    prometheus.Registerer
	tracer trace.Tracer
	now    func() time.Time
	m      *metrics

	state atomic.Pointer[State]

	events  chan Event
	closing chan struct{}
	done    chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	subsMu sync.Mutex
	subs   []chan State
	ended  bool
}

// New returns a gate over init that dispatches ready requests to table.
func New(init Initializers, table *route.Table[Handler], opts ...Option) *Gate {
	g := &Gate{
		init:    init,
		table:   table,
		views:   plainViews{},
		logger:  slog.Default().With("component", "gate"),
		tracer:  otel.Tracer("dapp/gate"),
		now:     time.Now,
		events:  make(chan Event),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(g)
	}
	if g.table == nil {
		g.table = route.New[Handler](nil)
	}
	g.m = newMetrics(g.reg)
	g.state.Store(&State{})
	return g
}

// Policy returns the gate's failure policy.
func (g *Gate) Policy() Policy { return g.policy }

// Snapshot returns the current state.
func (g *Gate) Snapshot() State { return *g.state.Load() }

// View returns the view the current state renders.
func (g *Gate) View() View { return Decide(g.Snapshot(), g.policy) }

// Start launches the event loop and the first stage. Cancelling ctx cancels
// in-flight initializers and closes the gate.
func (g *Gate) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	g.startOnce.Do(func() {
		err = nil
		select {
		case <-g.closing:
			err = ErrClosed
			return
		default:
		}
		g.started.Store(true)
		ctx, cancel := context.WithCancel(ctx)
		go g.loop(ctx, cancel)
	})
	if errors.Is(err, ErrAlreadyStarted) {
		select {
		case <-g.closing:
			return ErrClosed
		default:
		}
	}
	return err
}

// Close stops the gate. Stages still running are marked canceled and their
// late completions are dropped. Close is idempotent and waits for the event
// loop to exit.
func (g *Gate) Close() {
	g.closeOnce.Do(func() {
		close(g.closing)
		// Claim startOnce so that a later Start cannot launch a loop.
		g.startOnce.Do(func() {})
		if !g.started.Load() {
			g.apply(Closed(g.now()))
			g.endSubscriptions()
			close(g.done)
		}
	})
	<-g.done
}

// Subscribe returns a channel that receives the latest state after each
// change. Slow readers only see the newest state. The channel is closed
// when the gate closes.
func (g *Gate) Subscribe() <-chan State {
	ch, _ := g.subscribe()
	return ch
}

func (g *Gate) subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	ch <- g.Snapshot()
	if g.ended {
		close(ch)
		return ch, func() {}
	}
	g.subs = append(g.subs, ch)
	return ch, func() { g.unsubscribe(ch) }
}

func (g *Gate) unsubscribe(ch chan State) {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	for i, c := range g.subs {
		if c == ch {
			g.subs = append(g.subs[:i], g.subs[i+1:]...)
			return
		}
	}
}

// Wait blocks until no stage is loading, the gate closes, or ctx ends.
func (g *Gate) Wait(ctx context.Context) (State, error) {
	if st := g.Snapshot(); !st.Loading() {
		return st, nil
	}
	ch, cancel := g.subscribe()
	defer cancel()
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				st = g.Snapshot()
				if st.Loading() {
					return st, ErrClosed
				}
				return st, nil
			}
			if !st.Loading() {
				return st, nil
			}
		case <-ctx.Done():
			return g.Snapshot(), ctx.Err()
		}
	}
}

func (g *Gate) loop(ctx context.Context, cancel context.CancelFunc) {
	defer close(g.done)
	defer g.endSubscriptions()
	defer cancel()

	g.advance(ctx)
	for {
		select {
		case ev := <-g.events:
			g.apply(ev)
			g.advance(ctx)
		case <-g.closing:
			g.apply(Closed(g.now()))
			return
		case <-ctx.Done():
			g.logger.Debug("context ended, closing gate", "err", ctx.Err())
			g.apply(Closed(g.now()))
			return
		}
	}
}

// advance starts the next stage if its predecessors are done.
func (g *Gate) advance(ctx context.Context) {
	st := g.Snapshot()
	next, ok := st.Next()
	if !ok {
		return
	}
	g.apply(Started(next, g.now()))
	resolved := st.Resolved
	g.logger.Debug("stage started", "stage", next.String())
	go g.run(ctx, next, resolved)
}

// apply reduces ev into the current state and publishes the result.
func (g *Gate) apply(ev Event) {
	next, applied := reduce(g.Snapshot(), ev)
	if !applied {
		return
	}
	g.state.Store(&next)

	if ev.Kind == EventCompleted {
		ss := next.Stages[ev.Stage]
		g.m.observeStage(ev.Stage, ss)
		if ss.Status == Failed {
			g.logger.Warn("stage failed",
				"stage", ev.Stage.String(),
				"kind", ss.Err.String(),
				"fatal", g.policy.Fatal(ev.Stage),
				"err", ss.Cause,
			)
		} else {
			g.logger.Info("stage loaded", "stage", ev.Stage.String(), "duration", ss.Duration())
		}
		if Decide(next, g.policy) == ViewReady {
			g.m.ready.Set(1)
		}
	}
	g.publish(next)
}

// run executes one initializer and hands its completion to the loop. The
// send is dropped once the loop has exited.
func (g *Gate) run(ctx context.Context, s Stage, in Resolved) {
	ctx, span := g.tracer.Start(ctx, "gate.stage "+s.String(),
		trace.WithAttributes(attribute.String("dapp.stage", s.String())))
	ev := g.invoke(ctx, s, in)
	if ev.Err != ErrKindNone {
		span.RecordError(ev.Cause)
		span.SetStatus(codes.Error, ev.Err.String())
	}
	span.End()

	select {
	case g.events <- ev:
	case <-g.done:
	}
}

func (g *Gate) invoke(ctx context.Context, s Stage, in Resolved) (ev Event) {
	defer func() {
		if r := recover(); r != nil {
			ev = Event{
				Stage: s, Kind: EventCompleted, At: g.now(),
				Err: ErrKindStageInit, Cause: fmt.Errorf("%s stage panicked: %v", s, r),
			}
		}
	}()
	switch s {
	case StageWhitelist:
		return WhitelistDone(call0(ctx, g.init.Whitelist), g.now())
	case StageWallet:
		return WalletDone(call1(ctx, g.init.Wallet, in.Whitelist), g.now())
	default:
		return SessionDone(call1(ctx, g.init.Session, in.Wallet), g.now())
	}
}

func call0[T any](ctx context.Context, fn func(context.Context) (T, error)) Result[T] {
	if fn == nil {
		var zero T
		return Ok(zero)
	}
	v, err := fn(ctx)
	return toResult(ctx, v, err)
}

func call1[T, In any](ctx context.Context, fn func(context.Context, In) (T, error), in In) Result[T] {
	if fn == nil {
		var zero T
		return Ok(zero)
	}
	v, err := fn(ctx, in)
	return toResult(ctx, v, err)
}

func toResult[T any](ctx context.Context, v T, err error) Result[T] {
	switch {
	case err == nil:
		return Ok(v)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return Fail[T](ErrKindCanceled, err)
	default:
		return Fail[T](ErrKindStageInit, err)
	}
}

func (g *Gate) publish(st State) {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	for _, ch := range g.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (g *Gate) endSubscriptions() {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	for _, ch := range g.subs {
		close(ch)
	}
	g.subs = nil
	g.ended = true
}
