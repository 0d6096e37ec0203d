package property

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/concurrent"
	"github.com/dshills/missioncontrol/internal/metrics"
)

// selector maps the value of one link to the next link, or, for a terminal
// extractor, to the path's value.
type selector struct {
	next  func(v any) (observable, bool)
	value func(v any) (any, bool)
}

// PathBuilder composes a property path. Start with From, extend with Select
// and optionally finish with SelectValue, then call Build.
type PathBuilder[T any] struct {
	root      observable
	selectors []selector
	terminal  bool
	err       error
}

// From starts a path at root.
func From[R any](root ReadOnly[R]) *PathBuilder[R] {
	b := &PathBuilder[R]{}
	if root == nil || isNil(root) {
		b.err = errors.Join(beans.ErrInvalidMetadata, errors.New("path root is nil"))
		return b
	}
	b.root = root
	return b
}

// Select appends a link: fn maps the current value of the previous link to
// the property followed next. A nil previous value, or fn returning nil,
// leaves the rest of the chain unresolved.
func Select[A, B any](b *PathBuilder[A], fn func(A) ReadOnly[B]) *PathBuilder[B] {
	next := chain[A, B](b)
	if next.err != nil {
		return next
	}
	if fn == nil {
		next.err = errors.Join(beans.ErrInvalidMetadata, errors.New("selector is nil"))
		return next
	}
	next.selectors = append(next.selectors, selector{
		next: func(v any) (observable, bool) {
			a, ok := v.(A)
			if !ok || isNil(v) {
				return nil, false
			}
			r := fn(a)
			if r == nil || isNil(r) {
				return nil, false
			}
			return r, true
		},
	})
	return next
}

// SelectValue ends the path with a plain extractor. No subscription is made
// on the extracted value; the path updates when the last link changes.
func SelectValue[A, V any](b *PathBuilder[A], fn func(A) V) *PathBuilder[V] {
	next := chain[A, V](b)
	if next.err != nil {
		return next
	}
	if fn == nil {
		next.err = errors.Join(beans.ErrInvalidMetadata, errors.New("extractor is nil"))
		return next
	}
	next.terminal = true
	next.selectors = append(next.selectors, selector{
		value: func(v any) (any, bool) {
			a, ok := v.(A)
			if !ok || isNil(v) {
				return nil, false
			}
			return fn(a), true
		},
	})
	return next
}

func chain[A, B any](b *PathBuilder[A]) *PathBuilder[B] {
	next := &PathBuilder[B]{
		root:      b.root,
		selectors: append([]selector(nil), b.selectors...),
		err:       b.err,
	}
	if next.err == nil && b.terminal {
		next.err = errors.Join(beans.ErrInvalidMetadata, errors.New("path already ends in a value extractor"))
	}
	return next
}

type pathConfig[T any] struct {
	fallback T
	name     string
	metadata *Metadata[T]
	metrics  *metrics.Paths
}

// PathOption configures a path.
type PathOption[T any] func(*pathConfig[T])

// WithFallback sets the value of the path while its chain is unresolved.
// Without it the zero value is used.
func WithFallback[T any](v T) PathOption[T] {
	return func(c *pathConfig[T]) {
		c.fallback = v
	}
}

// WithPathName names the derived property.
func WithPathName[T any](name string) PathOption[T] {
	return func(c *pathConfig[T]) {
		c.name = name
	}
}

// WithPathMetadata sets the metadata of the derived property, for example a
// synchronization context its listeners must run on.
func WithPathMetadata[T any](md *Metadata[T]) PathOption[T] {
	return func(c *pathConfig[T]) {
		c.metadata = md
	}
}

// WithPathMetrics records chain rebuilds on m.
func WithPathMetrics[T any](m *metrics.Paths) PathOption[T] {
	return func(c *pathConfig[T]) {
		c.metrics = m
	}
}

// Build resolves the chain against the current values and returns the path.
func (b *PathBuilder[T]) Build(opts ...PathOption[T]) (*Path[T], error) {
	if b.err != nil {
		return nil, beans.NewError("path", "", b.err)
	}

	var cfg pathConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	forced := NewBuilder[T]().CustomBean(true).InitialValue(cfg.fallback)
	if cfg.name != "" {
		forced.Name(cfg.name)
	}
	own, err := forced.Create()
	if err != nil {
		return nil, err
	}

	derived, err := New[T](nil, cfg.metadata.Merge(own))
	if err != nil {
		return nil, err
	}

	p := &Path[T]{
		derived:   derived,
		root:      b.root,
		selectors: b.selectors,
		fallback:  cfg.fallback,
		metrics:   cfg.metrics,
	}
	for _, s := range b.selectors {
		if s.next != nil {
			p.depth++
		}
	}
	derived.self = p

	p.mu.Lock()
	p.extend()
	derived.value = p.current()
	links := len(p.links)
	p.mu.Unlock()

	p.metrics.Rebuilt(derived.name, links)
	return p, nil
}

type pathLink struct {
	obs     observable
	sub     *Subscription
	removed atomic.Bool
}

type pathEvent struct {
	ctx  context.Context
	link *pathLink
}

// Path is a read-only property that follows a chain of properties through
// an object graph. When the value of link k changes, the links below k are
// unsubscribed and resolved again from the new value; links 0..k are left
// alone. Changes are processed one at a time per path.
type Path[T any] struct {
	derived   *Property[T]
	root      observable
	selectors []selector
	depth     int
	fallback  T
	metrics   *metrics.Paths

	mu       sync.Mutex
	links    []*pathLink
	disposed bool

	eventsMu sync.Mutex
	events   []pathEvent
	draining bool
}

// extend subscribes links after the last resolved one until the chain ends
// or a link does not resolve. p.mu must be held.
func (p *Path[T]) extend() {
	if len(p.links) == 0 {
		p.links = append(p.links, p.subscribe(p.root))
	}
	for len(p.links) <= p.depth {
		last := p.links[len(p.links)-1]
		obs, ok := p.selectors[len(p.links)-1].next(last.obs.anyValue())
		if !ok {
			return
		}
		p.links = append(p.links, p.subscribe(obs))
	}
}

func (p *Path[T]) subscribe(obs observable) *pathLink {
	l := &pathLink{obs: obs}
	l.sub = obs.addAnyListener(func(ctx context.Context) {
		p.enqueue(ctx, l)
	})
	return l
}

// truncate releases every link after index k. p.mu must be held.
func (p *Path[T]) truncate(k int) {
	for _, l := range p.links[k+1:] {
		l.removed.Store(true)
		l.sub.Remove()
	}
	clear(p.links[k+1:])
	p.links = p.links[:k+1]
}

// current computes the path value from the resolved links. p.mu must be held.
func (p *Path[T]) current() T {
	if len(p.links) <= p.depth {
		return p.fallback
	}
	v := p.links[len(p.links)-1].obs.anyValue()
	if p.depth < len(p.selectors) {
		var ok bool
		if v, ok = p.selectors[p.depth].value(v); !ok {
			return p.fallback
		}
	}
	t, ok := v.(T)
	if !ok {
		return p.fallback
	}
	return t
}

func (p *Path[T]) enqueue(ctx context.Context, l *pathLink) {
	p.eventsMu.Lock()
	p.events = append(p.events, pathEvent{ctx: ctx, link: l})
	if p.draining {
		p.eventsMu.Unlock()
		return
	}
	p.draining = true
	p.eventsMu.Unlock()

	// Events queued by other goroutines are processed under a fresh identity.
	self, _ := concurrent.CallerFrom(ctx)

	defer func() {
		if r := recover(); r != nil {
			p.eventsMu.Lock()
			p.draining = false
			p.events = nil
			p.eventsMu.Unlock()
			panic(r)
		}
	}()

	for {
		p.eventsMu.Lock()
		if len(p.events) == 0 {
			p.draining = false
			p.eventsMu.Unlock()
			return
		}
		ev := p.events[0]
		p.events[0] = pathEvent{}
		p.events = p.events[1:]
		p.eventsMu.Unlock()

		if caller, _ := concurrent.CallerFrom(ev.ctx); caller != self {
			ev.ctx = concurrent.WithCaller(ev.ctx, concurrent.NewCaller())
		}
		p.process(ev)
	}
}

func (p *Path[T]) process(ev pathEvent) {
	p.mu.Lock()
	if p.disposed || ev.link.removed.Load() {
		p.mu.Unlock()
		return
	}

	k := -1
	for i, l := range p.links {
		if l == ev.link {
			k = i
			break
		}
	}
	if k < 0 {
		p.mu.Unlock()
		panic(beans.NewError("path", p.derived.name, beans.ErrStaleSubscription))
	}

	rebuilt := k < p.depth
	if rebuilt {
		p.truncate(k)
		p.extend()
	}
	links := len(p.links)
	p.mu.Unlock()

	if rebuilt {
		p.metrics.Rebuilt(p.derived.name, links)
	}
	_ = p.derived.setInternal(ev.ctx, "path", p.read)
}

func (p *Path[T]) read() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		var zero T
		return zero, false
	}
	return p.current(), true
}

// ActiveLinks returns the number of subscribed links, the root included.
func (p *Path[T]) ActiveLinks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.links)
}

// Dispose releases every link subscription and the derived property's
// listeners. No notification is delivered after Dispose returns.
func (p *Path[T]) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	for _, l := range p.links {
		l.removed.Store(true)
		l.sub.Remove()
	}
	p.links = nil
	p.mu.Unlock()

	p.metrics.Disposed(p.derived.name)
	p.derived.Dispose()
}

// UniqueID returns the id of the derived property.
func (p *Path[T]) UniqueID() int64 { return p.derived.UniqueID() }

// Bean returns nil; paths are not declared on a bean.
func (p *Path[T]) Bean() any { return p.derived.Bean() }

// Name returns the derived property name.
func (p *Path[T]) Name() string { return p.derived.Name() }

// Get returns the path value.
func (p *Path[T]) Get(ctx context.Context) (T, error) { return p.derived.Get(ctx) }

// GetUncritical returns the path value.
func (p *Path[T]) GetUncritical() T { return p.derived.GetUncritical() }

// Metadata returns the derived property metadata.
func (p *Path[T]) Metadata() *Metadata[T] { return p.derived.Metadata() }

// AccessController returns the derived property's controller.
func (p *Path[T]) AccessController() *access.Controller { return p.derived.AccessController() }

// AddListener registers l on the path value.
func (p *Path[T]) AddListener(l Listener[T]) *Subscription { return p.derived.AddListener(l) }

// RemoveListener unregisters the listener behind s.
func (p *Path[T]) RemoveListener(s *Subscription) { p.derived.RemoveListener(s) }

// ListenerCount returns the number of listeners on the path value.
func (p *Path[T]) ListenerCount() int { return p.derived.ListenerCount() }

func (p *Path[T]) addContextListener(fn contextListener[T]) *Subscription {
	return p.derived.addContextListener(fn)
}

func (p *Path[T]) anyValue() any { return p.derived.anyValue() }

func (p *Path[T]) addAnyListener(fn func(ctx context.Context)) *Subscription {
	return p.derived.addAnyListener(fn)
}

func (p *Path[T]) dependencies() []observable {
	p.mu.Lock()
	defer p.mu.Unlock()
	deps := make([]observable, 0, len(p.links))
	for _, l := range p.links {
		deps = append(deps, l.obs)
	}
	return deps
}
