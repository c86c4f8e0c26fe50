package pipeline

import (
	"context"
	"strconv"
	"sync"
	"time"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/trace"
)

// DefaultDebounce is the settle interval used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Controller.
type Options struct {
	Debounce time.Duration
	Executor Attempter
	Cache    Cache
	Tracer   trace.Tracer
	// OnChange receives the current snapshot after every observable
	// mutation. Calls are serialised and stop once Close returns. It must
	// not call Close.
	OnChange func(Snapshot)
}

// Snapshot is the observable state of a controller.
type Snapshot struct {
	Generation diagram.Generation
	Phase      Phase
	Input      diagram.Input
	Outcome    diagram.Outcome
}

// Controller debounces inputs and runs one generation at a time.
type Controller struct {
	debounce time.Duration
	att      Attempter
	cache    Cache
	tracer   trace.Tracer
	onChange func(Snapshot)

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	gen      diagram.Generation
	input    diagram.Input
	hasInput bool
	phase    Phase
	outcome  diagram.Outcome
	timer    *time.Timer
	cancel   context.CancelFunc
	closed   bool

	notifyMu sync.Mutex
	lastGen  diagram.Generation
	lastSeen Phase
	notified bool
	wg       sync.WaitGroup
}

// New creates an idle controller.
func New(opts Options) *Controller {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		debounce:   debounce,
		att:        opts.Executor,
		cache:      opts.Cache,
		tracer:     trace.OrNop(opts.Tracer),
		onChange:   opts.OnChange,
		baseCtx:    ctx,
		baseCancel: cancel,
		phase:      PhaseIdle,
		outcome:    diagram.Pending(),
	}
}

// Submit starts a generation for in. An input with the same identity as
// the current one is ignored and the current generation is returned.
func (c *Controller) Submit(in diagram.Input) diagram.Generation {
	return c.submit(in, false)
}

// Retry resubmits the current input as a fresh generation.
func (c *Controller) Retry() diagram.Generation {
	c.mu.Lock()
	if c.closed || !c.hasInput {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	in := c.input
	c.mu.Unlock()
	return c.submit(in, true)
}

func (c *Controller) submit(in diagram.Input, force bool) diagram.Generation {
	c.mu.Lock()
	if c.closed {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	if !force && c.hasInput && c.input.Identity() == in.Identity() {
		gen := c.gen
		c.mu.Unlock()
		trace.Point(c.tracer, trace.ScopeGeneration, "dedupe", "", genExtra(gen))
		return gen
	}

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.input = in
	c.hasInput = true
	c.outcome = diagram.Pending()

	if in.Empty() {
		c.phase = PhaseCommitted
		c.outcome = diagram.Failed(diagram.EmptyInput)
		c.mu.Unlock()
		trace.Point(c.tracer, trace.ScopeGeneration, "commit", diagram.EmptyInput.Code(), genExtra(gen))
		c.notify()
		return gen
	}

	c.phase = PhaseDebouncing
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	c.wg.Add(1)
	c.timer = time.AfterFunc(c.debounce, func() {
		defer c.wg.Done()
		c.run(ctx, gen, in)
	})
	c.mu.Unlock()

	trace.Point(c.tracer, trace.ScopeGeneration, "submit", in.Identity().Short(), genExtra(gen))
	c.notify()
	return gen
}

// stopLocked supersedes the in-flight generation: its pending timer is
// stopped and its context cancelled.
func (c *Controller) stopLocked() {
	if c.timer != nil {
		if c.timer.Stop() {
			c.wg.Done()
		}
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) run(ctx context.Context, gen diagram.Generation, in diagram.Input) {
	span := trace.Begin(c.tracer, trace.ScopeGeneration, "generation", 0).
		WithExtra(trace.ExtraGeneration, strconv.FormatUint(uint64(gen), 10))

	ctx = trace.WithGeneration(ctx, uint64(gen))
	out, ok := Run(ctx, c.att, c.cache, in, c.guard(gen))
	if !ok || !c.commit(gen, out) {
		trace.Point(c.tracer, trace.ScopeGeneration, "discard", "", genExtra(gen))
		span.End("discarded")
		return
	}
	Remember(c.cache, in, out)
	span.End(out.Status.String())
}

// guard is the Step of generation gen.
func (c *Controller) guard(gen diagram.Generation) Step {
	return func(next Phase) bool {
		c.mu.Lock()
		if c.closed || c.gen != gen {
			c.mu.Unlock()
			return false
		}
		c.phase = next
		c.mu.Unlock()
		trace.Point(c.tracer, trace.ScopeAttempt, "phase", next.String(), genExtra(gen))
		c.notify()
		return true
	}
}

func (c *Controller) commit(gen diagram.Generation, out diagram.Outcome) bool {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.phase = PhaseCommitted
	c.outcome = out
	c.timer = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	detail := out.Status.String()
	if out.Status == diagram.StatusFailure {
		detail = out.Reason.Code()
	}
	trace.Point(c.tracer, trace.ScopeGeneration, "commit", detail, genExtra(gen))
	c.notify()
	return true
}

// notify delivers the current snapshot. A notification that arrives late
// may observe a newer state; the same generation and phase is delivered
// once.
func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if c.notified && snap.Generation == c.lastGen && snap.Phase == c.lastSeen {
		return
	}
	c.notified, c.lastGen, c.lastSeen = true, snap.Generation, snap.Phase
	c.onChange(snap)
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Generation: c.gen,
		Phase:      c.phase,
		Input:      c.input,
		Outcome:    c.outcome,
	}
}

// Close stops the pending timer, cancels in-flight work and supersedes the
// current generation. No state changes or notifications happen after
// Close returns. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopLocked()
	c.baseCancel()
	gen := c.gen
	c.mu.Unlock()

	// Wait out a notification that started before closed was set.
	c.notifyMu.Lock()
	c.notifyMu.Unlock() //nolint:staticcheck
	trace.Point(c.tracer, trace.ScopeSession, "close", "", genExtra(gen))
}

// Wait blocks until every started generation has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func genExtra(gen diagram.Generation) map[string]string {
	return trace.GenerationExtra(uint64(gen))
}
