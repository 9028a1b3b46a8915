package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State tracks an instance through its lifecycle.
type State int

const (
	StateSpawned State = iota
	StateAwaitingHandshake
	StateReady
	StateBusy
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

var (
	ErrHandshakeTimeout = errors.New("engine: handshake timed out")
	ErrEvalTimeout      = errors.New("engine: evaluation timed out")
	ErrShuttingDown     = errors.New("engine: pool shutting down")
	ErrTerminated       = errors.New("engine: process terminated")
)

// request pairs one evaluation with its completion handle. A request is
// settled exactly once and never resubmitted.
type request struct {
	fen   string
	depth int
	done  chan outcome
}

type outcome struct {
	eval Evaluation
	err  error
}

// Instance owns exactly one engine subprocess. At most one request is in
// flight; overflow sits in the FIFO queue. state and queue are only touched
// under mu, which preserves the one-in-flight invariant across callers.
type Instance struct {
	id   int
	proc *Process
	log  zerolog.Logger

	events chan Event

	handshakeTimeout time.Duration
	evalTimeout      time.Duration

	mu    sync.Mutex
	state State
	queue []*request
	stale int // bestmoves still owed by timed-out searches
}

func newInstance(id int, proc *Process, log zerolog.Logger, handshakeTimeout, evalTimeout time.Duration) *Instance {
	inst := &Instance{
		id:               id,
		proc:             proc,
		log:              log.With().Int("instance_id", id).Logger(),
		events:           make(chan Event, 64),
		handshakeTimeout: handshakeTimeout,
		evalTimeout:      evalTimeout,
		state:            StateSpawned,
	}
	go inst.readLoop()
	return inst
}

// readLoop feeds stdout through the incremental parser. Closing events is
// the terminal signal every waiter understands.
func (inst *Instance) readLoop() {
	var parser Parser
	buf := make([]byte, 4096)
	for {
		n, err := inst.proc.stdout.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				inst.events <- ev
			}
		}
		if err != nil {
			close(inst.events)
			return
		}
	}
}

// State returns the current lifecycle state.
func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

func (inst *Instance) queueLen() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return len(inst.queue)
}

func (inst *Instance) setState(s State) {
	inst.mu.Lock()
	inst.state = s
	inst.mu.Unlock()
}

func (inst *Instance) staleBestmoves() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.stale
}

func (inst *Instance) addStale() {
	inst.mu.Lock()
	inst.stale++
	inst.mu.Unlock()
}

func (inst *Instance) dropStale() {
	inst.mu.Lock()
	if inst.stale > 0 {
		inst.stale--
	}
	inst.mu.Unlock()
}

// handshake drives the init sequence to Ready: uci, wait for uciok, send the
// option setup, then a second readiness probe. One deadline covers the whole
// sequence.
func (inst *Instance) handshake(ctx context.Context, threads, hashMB int) error {
	inst.setState(StateAwaitingHandshake)

	timer := time.NewTimer(inst.handshakeTimeout)
	defer timer.Stop()

	if err := inst.proc.Send("uci"); err != nil {
		return err
	}
	if err := inst.waitFor(ctx, timer.C, EventUCIOk); err != nil {
		return err
	}

	if err := inst.proc.Send(fmt.Sprintf("setoption name Threads value %d", threads)); err != nil {
		return err
	}
	if err := inst.proc.Send(fmt.Sprintf("setoption name Hash value %d", hashMB)); err != nil {
		return err
	}
	if err := inst.proc.Send("isready"); err != nil {
		return err
	}
	if err := inst.waitFor(ctx, timer.C, EventReadyOk); err != nil {
		return err
	}

	inst.setState(StateReady)
	inst.log.Info().Msg("engine instance ready")
	return nil
}

func (inst *Instance) waitFor(ctx context.Context, deadline <-chan time.Time, kind EventKind) error {
	for {
		select {
		case ev, ok := <-inst.events:
			if !ok {
				return ErrTerminated
			}
			if ev.Kind == kind {
				return nil
			}
		case <-deadline:
			return ErrHandshakeTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// trySubmit dispatches req immediately if the instance is idle.
func (inst *Instance) trySubmit(req *request) bool {
	inst.mu.Lock()
	if inst.state != StateReady {
		inst.mu.Unlock()
		return false
	}
	inst.state = StateBusy
	inst.mu.Unlock()
	go inst.run(req)
	return true
}

// enqueue appends req to the FIFO queue, or dispatches right away if the
// instance happens to be idle.
func (inst *Instance) enqueue(req *request) {
	inst.mu.Lock()
	switch inst.state {
	case StateReady:
		inst.state = StateBusy
		inst.mu.Unlock()
		go inst.run(req)
	case StateShuttingDown, StateTerminated:
		inst.mu.Unlock()
		req.done <- outcome{err: ErrShuttingDown}
	default:
		inst.queue = append(inst.queue, req)
		inst.mu.Unlock()
	}
}

// run serves req and then drains the queue in submission order. Busy->Ready
// happens only here, so queued requests never execute concurrently on the
// same pipes.
func (inst *Instance) run(req *request) {
	for req != nil {
		eval, err := inst.search(req.fen, req.depth)
		req.done <- outcome{eval: eval, err: err}

		inst.mu.Lock()
		if inst.state != StateBusy {
			// Shutdown raced us; it settles whatever is still queued.
			inst.mu.Unlock()
			return
		}
		if len(inst.queue) > 0 {
			req = inst.queue[0]
			inst.queue = inst.queue[1:]
		} else {
			req = nil
			inst.state = StateReady
		}
		inst.mu.Unlock()
	}
}

// search runs one position evaluation against the live process.
func (inst *Instance) search(fen string, depth int) (Evaluation, error) {
	inst.drainStale()

	if err := inst.proc.Send("position fen " + fen); err != nil {
		return Evaluation{}, err
	}
	if err := inst.proc.Send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return Evaluation{}, err
	}

	timer := time.NewTimer(inst.evalTimeout)
	defer timer.Stop()

	// Raw scores arrive from the side to move's perspective; normalize to
	// White's.
	negate := blackToMove(fen)

	var best *Evaluation
	for {
		select {
		case ev, ok := <-inst.events:
			if !ok {
				return Evaluation{}, ErrTerminated
			}
			if inst.staleBestmoves() > 0 {
				// Output from a timed-out search. Everything up to and
				// including its bestmove belongs to that search, not this
				// one; the engine answers commands in order.
				if ev.Kind == EventBestMove {
					inst.dropStale()
				}
				continue
			}
			switch ev.Kind {
			case EventScore:
				// Shallow lines would clobber near-final scores.
				if ev.Depth < depth-2 {
					continue
				}
				value := ev.Score
				if negate {
					value = -value
				}
				best = &Evaluation{Kind: ev.ScoreKind, Value: value, PV: ev.PV}
			case EventBestMove:
				if best == nil {
					// Instant or forced move: no scored line was emitted.
					return Evaluation{
						Kind:     ScoreCentipawn,
						Value:    0,
						BestMove: ev.BestMove,
						PV:       []string{ev.BestMove},
					}, nil
				}
				best.BestMove = ev.BestMove
				if len(best.PV) == 0 {
					best.PV = []string{ev.BestMove}
				}
				inst.log.Debug().
					Str("fen", fen).
					Str("kind", best.Kind.String()).
					Int("value", best.Value).
					Str("best_move", best.BestMove).
					Msg("evaluated")
				return *best, nil
			}
		case <-timer.C:
			// Free the instance. The abandoned search still owes one
			// bestmove; until it arrives, every event is ignored.
			_ = inst.proc.Send("stop")
			inst.addStale()
			inst.log.Warn().Str("fen", fen).Int("depth", depth).Msg("evaluation timed out")
			return Evaluation{}, ErrEvalTimeout
		}
	}
}

// drainStale discards events a timed-out search left buffered, crediting any
// bestmove among them against the stale count.
func (inst *Instance) drainStale() {
	for {
		select {
		case ev, ok := <-inst.events:
			if !ok {
				return
			}
			if ev.Kind == EventBestMove {
				inst.dropStale()
			}
		default:
			return
		}
	}
}

// shutdown rejects queued requests, asks the process to quit, then
// force-terminates it.
func (inst *Instance) shutdown() {
	inst.mu.Lock()
	if inst.state == StateShuttingDown || inst.state == StateTerminated {
		inst.mu.Unlock()
		return
	}
	inst.state = StateShuttingDown
	pending := inst.queue
	inst.queue = nil
	inst.mu.Unlock()

	for _, req := range pending {
		req.done <- outcome{err: ErrShuttingDown}
	}

	_ = inst.proc.Send("quit")
	inst.proc.Kill()

	// Unblock the read loop if it is mid-send so it can observe EOF and
	// close the events channel.
	go func() {
		for range inst.events {
		}
	}()

	inst.setState(StateTerminated)
	inst.log.Info().Msg("engine instance terminated")
}

func blackToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) > 1 && fields[1] == "b"
}
