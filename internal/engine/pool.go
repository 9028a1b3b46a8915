package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNotInitialized reports an Evaluate call before Initialize succeeded.
var ErrNotInitialized = errors.New("engine: pool not initialized")

// Config configures the evaluation pool.
type Config struct {
	EnginePath string   // explicit binary path; empty = discovery
	Candidates []string // discovery order override (defaults to CandidatePaths)
	Size       int      // number of engine instances
	Threads    int      // engine threads per instance
	HashMB     int      // hash table size per instance
	Logger     zerolog.Logger

	HandshakeTimeout time.Duration
	EvalTimeout      time.Duration

	// Test seams for subprocess creation and discovery.
	start  func(path string) (*Process, error)
	locate func(log zerolog.Logger, candidates []string) (*Process, error)
}

// Pool owns a fixed set of engine instances and dispatches evaluation
// requests across them.
type Pool struct {
	cfg Config
	log zerolog.Logger

	mu        sync.Mutex
	instances []*Instance
	ready     bool
}

// NewPool creates a pool; call Initialize before Evaluate.
func NewPool(cfg Config) *Pool {
	if cfg.Size == 0 {
		cfg.Size = 2
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 128
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.EvalTimeout == 0 {
		cfg.EvalTimeout = 30 * time.Second
	}
	if cfg.start == nil {
		cfg.start = startProcess
	}
	if cfg.locate == nil {
		cfg.locate = Locate
	}
	return &Pool{cfg: cfg, log: cfg.Logger}
}

// Initialize discovers the engine binary and brings every instance to Ready.
// Idempotent: a second call is a no-op. Any instance failing its handshake
// tears the whole set down; a partially-ready pool is never exposed.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	candidates := p.cfg.Candidates
	if p.cfg.EnginePath != "" {
		candidates = []string{p.cfg.EnginePath}
	}

	proc, err := p.cfg.locate(p.log, candidates)
	if err != nil {
		return err
	}

	// The probe process becomes instance 0; siblings spawn from its path.
	instances := make([]*Instance, 0, p.cfg.Size)
	instances = append(instances, newInstance(0, proc, p.log, p.cfg.HandshakeTimeout, p.cfg.EvalTimeout))
	for i := 1; i < p.cfg.Size; i++ {
		sibling, err := p.cfg.start(proc.path)
		if err != nil {
			shutdownAll(instances)
			return fmt.Errorf("spawn instance %d: %w", i, err)
		}
		instances = append(instances, newInstance(i, sibling, p.log, p.cfg.HandshakeTimeout, p.cfg.EvalTimeout))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, inst := range instances {
		inst := inst
		g.Go(func() error {
			return inst.handshake(gctx, p.cfg.Threads, p.cfg.HashMB)
		})
	}
	if err := g.Wait(); err != nil {
		shutdownAll(instances)
		return fmt.Errorf("pool init: %w", err)
	}

	p.mu.Lock()
	if p.ready {
		// Lost an Initialize race; keep the winner's instances.
		p.mu.Unlock()
		shutdownAll(instances)
		return nil
	}
	p.instances = instances
	p.ready = true
	p.mu.Unlock()

	p.log.Info().Int("size", len(instances)).Str("path", proc.path).Msg("engine pool ready")
	return nil
}

// Evaluate scores one position at the given depth, from White's perspective.
// If every instance is busy the request queues on instance 0 regardless of
// queue depths, a deliberate simplification over least-loaded dispatch.
func (p *Pool) Evaluate(ctx context.Context, fen string, depth int) (Evaluation, error) {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return Evaluation{}, ErrNotInitialized
	}

	req := &request{fen: fen, depth: depth, done: make(chan outcome, 1)}
	dispatched := false
	for _, inst := range p.instances {
		if inst.trySubmit(req) {
			dispatched = true
			break
		}
	}
	if !dispatched {
		p.instances[0].enqueue(req)
	}
	p.mu.Unlock()

	select {
	case out := <-req.done:
		return out.eval, out.err
	case <-ctx.Done():
		return Evaluation{}, ctx.Err()
	}
}

// Shutdown terminates every instance and clears the pool. Requests still
// queued are rejected with ErrShuttingDown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	instances := p.instances
	p.instances = nil
	p.ready = false
	p.mu.Unlock()

	shutdownAll(instances)
	if len(instances) > 0 {
		p.log.Info().Int("size", len(instances)).Msg("engine pool shut down")
	}
}

func shutdownAll(instances []*Instance) {
	for _, inst := range instances {
		inst.shutdown()
	}
}
