package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/missioncontrol/internal/metrics"
)

// Affinity is a synchronization context bound to one goroutine. Tasks from
// callers without access are queued and executed by that goroutine in
// submission order.
type Affinity struct {
	// Configuration
	id        Caller
	name      string
	mode      Mode
	queueSize int

	// State
	mu       sync.RWMutex // protects queue creation/destruction
	queue    chan *Future
	stopping chan struct{}
	stopOnce *sync.Once
	running  atomic.Bool
	wg       sync.WaitGroup

	// Handlers
	logger       *zap.Logger
	metrics      *metrics.Dispatch
	panicHandler PanicHandler
	errorHandler func(error)

	// Stats
	enqueued  atomic.Uint64
	executed  atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	stale     atomic.Uint64
}

// AffinityOption configures an Affinity context.
type AffinityOption func(*Affinity)

// WithName sets the context name used in logs and metrics.
func WithName(name string) AffinityOption {
	return func(a *Affinity) {
		if name != "" {
			a.name = name
		}
	}
}

// WithMode sets how Execute treats callers without access.
func WithMode(m Mode) AffinityOption {
	return func(a *Affinity) {
		a.mode = m
	}
}

// WithQueueSize sets the task queue capacity. Submitting to a full queue
// waits for room.
func WithQueueSize(size int) AffinityOption {
	return func(a *Affinity) {
		if size > 0 {
			a.queueSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AffinityOption {
	return func(a *Affinity) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the dispatch metrics recorder.
func WithMetrics(m *metrics.Dispatch) AffinityOption {
	return func(a *Affinity) {
		a.metrics = m
	}
}

// WithPanicHandler sets a handler called when a task panics.
func WithPanicHandler(h PanicHandler) AffinityOption {
	return func(a *Affinity) {
		a.panicHandler = h
	}
}

// WithErrorHandler sets a handler for failures of queued tasks. It runs on
// the context goroutine.
func WithErrorHandler(h func(error)) AffinityOption {
	return func(a *Affinity) {
		a.errorHandler = h
	}
}

// NewAffinity creates a stopped affinity context. Call Start before use.
func NewAffinity(opts ...AffinityOption) *Affinity {
	a := &Affinity{
		id:        NewCaller(),
		name:      "affinity",
		mode:      ModeBlocking,
		queueSize: 1024,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the context name.
func (a *Affinity) Name() string { return a.name }

// Identity returns the caller identity of the context goroutine.
func (a *Affinity) Identity() Caller { return a.id }

// Mode returns the configured mode.
func (a *Affinity) Mode() Mode { return a.mode }

// HasAccess reports whether ctx carries this context's identity, which is
// the case for every task running on it.
func (a *Affinity) HasAccess(ctx context.Context) bool {
	c, ok := CallerFrom(ctx)
	return ok && c == a.id
}

// Context returns a copy of ctx carrying this context's identity. It is meant
// for code that is driven by the owning goroutine itself, such as an event
// loop that embeds the context.
func (a *Affinity) Context(ctx context.Context) context.Context {
	return WithCaller(ctx, a.id)
}

// Start starts the context goroutine.
func (a *Affinity) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running.Load() {
		return ErrAlreadyRunning
	}

	a.queue = make(chan *Future, a.queueSize)
	a.stopping = make(chan struct{})
	a.stopOnce = &sync.Once{}
	a.running.Store(true)

	a.wg.Add(1)
	go a.loop(a.queue)

	a.logger.Debug("synchronization context started",
		zap.String("context", a.name),
		zap.String("mode", a.mode.String()))
	return nil
}

// Stop stops accepting tasks, runs the tasks already queued and waits for
// the goroutine to finish or ctx to be done.
func (a *Affinity) Stop(ctx context.Context) error {
	a.mu.RLock()
	if !a.running.Load() {
		a.mu.RUnlock()
		return ErrNotRunning
	}
	stopping, once := a.stopping, a.stopOnce
	a.mu.RUnlock()

	// Release submitters blocked on a full queue before taking the write lock.
	once.Do(func() { close(stopping) })

	a.mu.Lock()
	if !a.running.Load() {
		a.mu.Unlock()
		return ErrNotRunning
	}
	a.running.Store(false)
	close(a.queue)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Debug("synchronization context stopped", zap.String("context", a.name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the context accepts tasks.
func (a *Affinity) IsRunning() bool {
	return a.running.Load()
}

// Execute runs task inline if ctx already runs on this context. Otherwise it
// queues the task; in ModeBlocking it waits for the result, in
// ModeFireAndForget it returns nil once queued.
func (a *Affinity) Execute(ctx context.Context, task Task) error {
	if a.HasAccess(ctx) {
		return run(ctx, a.name, task, a.panicHandler)
	}

	if a.mode == ModeFireAndForget {
		f := a.ExecuteAsync(context.WithoutCancel(ctx), task)
		select {
		case <-f.Done():
			// Only failures to queue complete before the task ran.
			if isQueueFailure(f.Err()) {
				return f.Err()
			}
		default:
		}
		return nil
	}

	return a.ExecuteAsync(ctx, task).Wait(ctx)
}

// ExecuteAsync queues task and returns its Future. Tasks running on the
// context must not queue onto a full queue of the same context; use Execute,
// which runs them inline.
func (a *Affinity) ExecuteAsync(ctx context.Context, task Task) *Future {
	f := newFuture(ctx, task)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running.Load() {
		f.complete(ErrNotRunning)
		return f
	}

	select {
	case a.queue <- f:
		a.enqueued.Add(1)
		a.metrics.Enqueued(a.name, len(a.queue))
	case <-a.stopping:
		f.complete(ErrNotRunning)
	case <-ctx.Done():
		f.complete(ctx.Err())
	}
	return f
}

func isQueueFailure(err error) bool {
	return errors.Is(err, ErrNotRunning) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// loop drains the queue until it is closed.
func (a *Affinity) loop(queue <-chan *Future) {
	defer a.wg.Done()

	for f := range queue {
		a.runFuture(f, len(queue))
	}
}

func (a *Affinity) runFuture(f *Future, depth int) {
	if !f.start() {
		a.stale.Add(1)
		a.metrics.Processed(a.name, metrics.ResultStale, 0, depth)
		return
	}

	a.executed.Add(1)
	start := time.Now()
	err := run(WithCaller(f.ctx, a.id), a.name, f.task, a.panicHandler)
	elapsed := time.Since(start)
	f.complete(err)

	result := metrics.ResultSucceeded
	switch {
	case err == nil:
		a.succeeded.Add(1)
	case isPanic(err):
		a.panicked.Add(1)
		result = metrics.ResultPanicked
	default:
		a.failed.Add(1)
		result = metrics.ResultFailed
	}
	a.metrics.Processed(a.name, result, elapsed, depth)

	if err != nil {
		a.logger.Warn("task failed",
			zap.String("context", a.name),
			zap.Error(err))
		if a.errorHandler != nil {
			a.errorHandler(err)
		}
	}
}

func isPanic(err error) bool {
	return errors.Is(err, ErrTaskPanic)
}

// Stats returns context statistics.
func (a *Affinity) Stats() AffinityStats {
	var depth int
	a.mu.RLock()
	if a.running.Load() {
		depth = len(a.queue)
	}
	a.mu.RUnlock()

	return AffinityStats{
		Enqueued:   a.enqueued.Load(),
		Executed:   a.executed.Load(),
		Succeeded:  a.succeeded.Load(),
		Failed:     a.failed.Load(),
		Panicked:   a.panicked.Load(),
		Stale:      a.stale.Load(),
		QueueDepth: depth,
	}
}

// AffinityStats contains statistics for an affinity context.
type AffinityStats struct {
	// Enqueued is the number of tasks marshalled onto the context.
	Enqueued uint64

	// Executed is the number of queued tasks that ran.
	Executed uint64

	// Succeeded is the number of queued tasks that returned nil.
	Succeeded uint64

	// Failed is the number of queued tasks that returned an error.
	Failed uint64

	// Panicked is the number of queued tasks that panicked.
	Panicked uint64

	// Stale is the number of queued tasks skipped because they were cancelled.
	Stale uint64

	// QueueDepth is the number of tasks waiting.
	QueueDepth int
}
