// Package status polls the generator's published status document and keeps
// the latest snapshot for the banner.
package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"genart/internal/domain"
)

// DefaultInterval is how often the status document is refetched.
const DefaultInterval = 5 * time.Second

var (
	ErrAlreadyStarted = errors.New("poller already started")
	ErrStopped        = errors.New("poller stopped")
)

type State string

const (
	// StateLoading: nothing fetched yet.
	StateLoading State = "loading"
	// StateUnavailable: every fetch so far failed. Renders nothing.
	StateUnavailable State = "unavailable"
	StateActive      State = "active"
	StateIdle        State = "idle"
)

// Snapshot is what the banner renders. Doc is nil until a fetch succeeds.
type Snapshot struct {
	State     State                  `json:"state" enum:"loading,unavailable,active,idle"`
	Loading   bool                   `json:"loading"`
	Doc       *domain.StatusDocument `json:"status,omitempty"`
	LastError string                 `json:"last_error,omitempty"`
	UpdatedAt string                 `json:"updated_at,omitempty" format:"date-time"`
}

// Visible reports whether the banner should render at all.
func (s Snapshot) Visible() bool { return s.Doc != nil }

// Observer receives poll outcomes, typically for metrics.
type Observer interface {
	PollFinished(took time.Duration, err error)
}

type Options struct {
	Interval  time.Duration
	IdleAgent string
	Logger    *zap.Logger
	Observer  Observer
}

// Poller refetches the status document on a fixed interval. It is started
// once and stopped once; Stop guarantees no fetch or publish happens after it
// returns.
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	idleAgent string
	logger    *zap.Logger
	observer  Observer
	now       func() time.Time

	mu      sync.RWMutex
	snap    Snapshot
	subs    []chan Snapshot
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(f Fetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.IdleAgent == "" {
		opts.IdleAgent = domain.DefaultIdleAgent
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		fetcher:   f,
		interval:  opts.Interval,
		idleAgent: opts.IdleAgent,
		logger:    opts.Logger.With(zap.String("component", "status")),
		observer:  opts.Observer,
		now:       time.Now,
		snap:      Snapshot{State: StateLoading, Loading: true},
		done:      make(chan struct{}),
	}
}

// Start fetches immediately and then on every tick until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
	p.logger.Info("status poller started", zap.Duration("interval", p.interval))
	return nil
}

// Stop cancels polling, aborting an in-flight fetch, and waits for the loop to exit.
// Subscriber channels are closed. Safe to call more than once, or without Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if started {
		<-p.done
	}
	p.mu.Lock()
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
	p.mu.Unlock()
	p.logger.Info("status poller stopped")
}

// Snapshot returns the latest published state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// IdleAgent is the agent name treated as idle.
func (p *Poller) IdleAgent() string { return p.idleAgent }

func (p *Poller) Interval() time.Duration { return p.interval }

// Subscribe returns a channel that receives every published snapshot. A slow
// reader only sees the latest one. The channel is closed by Stop.
func (p *Poller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		close(ch)
		return ch
	}
	p.subs = append(p.subs, ch)
	return ch
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	doc, err := p.fetcher.Fetch(ctx)
	if ctx.Err() != nil {
		// Disposed mid-flight; the result must not reach subscribers.
		return
	}
	if p.observer != nil {
		p.observer.PollFinished(time.Since(start), err)
	}
	if err != nil {
		p.logger.Debug("status fetch failed", zap.Error(err))
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	next := p.snap
	next.Loading = false
	if err != nil {
		next.LastError = err.Error()
		if next.Doc == nil {
			next.State = StateUnavailable
		}
	} else {
		d := doc
		next.Doc = &d
		next.LastError = ""
		next.UpdatedAt = p.now().UTC().Format(time.RFC3339)
		next.State = StateActive
		if doc.IsIdle(p.idleAgent) {
			next.State = StateIdle
		}
	}
	p.snap = next
	for _, ch := range p.subs {
		publish(ch, next)
	}
	p.mu.Unlock()
}

// publish replaces whatever is buffered with s.
func publish(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
