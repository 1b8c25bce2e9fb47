package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/logger"
	"github.com/tidemark/tidemark/internal/merge"
)

// State describes where a backend currently is in its lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSyncing      State = "syncing"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// EventType identifies a lifecycle notification.
type EventType string

const (
	EventReady        EventType = "ready"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventError        EventType = "error"
)

type Event struct {
	Type    EventType
	Backend string
	Err     error
}

// Listener receives lifecycle events. Listeners run on the syncing
// goroutine and must return quickly.
type Listener func(Event)

// Store is the local replicated store the orchestrator reconciles
// against.
type Store interface {
	GetAll(ctx context.Context, col domain.Collection) ([]domain.Document, error)
	BulkPut(ctx context.Context, col domain.Collection, docs []domain.Document, bypassRevisionCheck bool) ([]domain.PutResult, error)
}

// Status is a point-in-time snapshot of one backend's sync state.
type Status struct {
	Backend     string    `json:"backend"`
	State       State     `json:"state"`
	LastSync    time.Time `json:"lastSync,omitzero"`
	LastAttempt time.Time `json:"lastAttempt,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	Conflicts   int       `json:"conflicts"`
}

// Options tunes the orchestrator's pacing.
type Options struct {
	// Interval between periodic full syncs. Zero disables the ticker.
	Interval time.Duration
	// Debounce delays a change-triggered sync so bursts collapse into
	// one pass.
	Debounce time.Duration
	// Cooldown is the minimum gap between attempts against the same
	// backend.
	Cooldown time.Duration

	now func() time.Time
}

func (o *Options) withDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = time.Second
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 5 * time.Second
	}
	if o.now == nil {
		o.now = time.Now
	}
}

type backendState struct {
	backend     Backend
	state       State
	lastSync    time.Time
	lastAttempt time.Time
	lastErr     error
	conflicts   int
	inFlight    bool
}

// Orchestrator drives replication between the local store and every
// configured backend. Each backend syncs at most once at a time; a
// trigger that lands mid-sync is dropped, the periodic pass will catch
// whatever it would have carried.
type Orchestrator struct {
	store     Store
	opts      Options
	logger    logger.Logger
	mu        sync.Mutex
	backends  map[string]*backendState
	order     []string
	listeners []Listener
	trigger   chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	debouncer *time.Timer
}

func New(store Store, backends []Backend, opts Options, log logger.Logger) *Orchestrator {
	opts.withDefaults()
	o := &Orchestrator{
		store:    store,
		opts:     opts,
		logger:   log,
		backends: make(map[string]*backendState, len(backends)),
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	for _, b := range backends {
		o.backends[b.Name()] = &backendState{backend: b, state: StateDisconnected}
		o.order = append(o.order, b.Name())
	}
	return o
}

// Subscribe registers a lifecycle listener.
func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	o.listeners = append(o.listeners, l)
	o.mu.Unlock()
}

func (o *Orchestrator) emit(ev Event) {
	o.mu.Lock()
	listeners := make([]Listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// Start runs the periodic loop until ctx is cancelled or Dispose is
// called. Change notifications arrive through NotifyChange.
func (o *Orchestrator) Start(ctx context.Context) {
	o.emit(Event{Type: EventReady})

	var tick <-chan time.Time
	if o.opts.Interval > 0 {
		ticker := time.NewTicker(o.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-tick:
			o.SyncAll(ctx)
		case <-o.trigger:
			o.SyncAll(ctx)
		}
	}
}

// NotifyChange schedules a debounced sync pass. Safe to call from any
// goroutine, including store change hooks.
func (o *Orchestrator) NotifyChange() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.debouncer != nil {
		o.debouncer.Reset(o.opts.Debounce)
		return
	}
	o.debouncer = time.AfterFunc(o.opts.Debounce, func() {
		o.mu.Lock()
		o.debouncer = nil
		o.mu.Unlock()
		select {
		case o.trigger <- struct{}{}:
		default:
		}
	})
}

// TriggerNow requests an immediate sync pass, skipping the debounce.
// It reports false when a pass is already queued.
func (o *Orchestrator) TriggerNow() bool {
	select {
	case o.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Dispose stops the loop and detaches every backend. Pending debounce
// timers are cancelled.
func (o *Orchestrator) Dispose() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.mu.Lock()
	if o.debouncer != nil {
		o.debouncer.Stop()
		o.debouncer = nil
	}
	names := make([]string, 0, len(o.backends))
	for _, name := range o.order {
		st := o.backends[name]
		if st.state != StateDisconnected {
			st.state = StateDisconnected
			names = append(names, name)
		}
	}
	o.mu.Unlock()
	for _, name := range names {
		o.emit(Event{Type: EventDisconnected, Backend: name})
	}
}

// SyncAll runs one pass against every backend in registration order.
func (o *Orchestrator) SyncAll(ctx context.Context) {
	for _, name := range o.order {
		o.Sync(ctx, name)
	}
}

// Sync runs one pass against the named backend. It reports false when
// the pass was dropped: unknown backend, a sync already in flight, or
// the cooldown window still open.
func (o *Orchestrator) Sync(ctx context.Context, name string) bool {
	o.mu.Lock()
	st, ok := o.backends[name]
	if !ok {
		o.mu.Unlock()
		return false
	}
	now := o.opts.now()
	if st.inFlight {
		o.mu.Unlock()
		o.logger.Debug("sync already in flight", logger.String("backend", name))
		return false
	}
	if !st.lastAttempt.IsZero() && now.Sub(st.lastAttempt) < o.opts.Cooldown {
		o.mu.Unlock()
		o.logger.Debug("sync inside cooldown window", logger.String("backend", name))
		return false
	}
	st.inFlight = true
	st.lastAttempt = now
	firstContact := st.state == StateDisconnected || st.state == StateError
	st.state = StateConnecting
	o.mu.Unlock()

	err := o.syncBackend(ctx, st)

	o.mu.Lock()
	st.inFlight = false
	if err != nil {
		st.state = StateError
		st.lastErr = err
		// lastSync stays, it still names the last good pass.
	} else {
		st.state = StateConnected
		st.lastErr = nil
		st.lastSync = o.opts.now()
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("sync failed", logger.String("backend", name), logger.Error(err))
		o.emit(Event{Type: EventError, Backend: name, Err: err})
		return true
	}
	o.logger.Info("sync complete", logger.String("backend", name))
	if firstContact {
		o.emit(Event{Type: EventConnected, Backend: name})
	}
	return true
}

// syncBackend reconciles every collection with one backend. Tags go
// first so bookmark tag references always point at tags the backend has
// already seen.
func (o *Orchestrator) syncBackend(ctx context.Context, st *backendState) error {
	o.setState(st, StateSyncing)
	conflicts := 0

	for _, col := range domain.Collections {
		remoteDocs, err := st.backend.Pull(ctx, col)
		if err != nil {
			return err
		}
		local, err := o.store.GetAll(ctx, col)
		if err != nil {
			return err
		}

		res := merge.Resolve(local, remoteDocs)
		conflicts += len(res.Conflicts)
		for _, c := range res.Conflicts {
			o.logger.Warn("conflict kept local version",
				logger.String("backend", st.backend.Name()),
				logger.String("collection", string(col)),
				logger.String("id", c.Local.ID()))
		}

		if len(res.ToSave) > 0 {
			results, err := o.store.BulkPut(ctx, col, res.ToSave, true)
			if err != nil {
				return err
			}
			for _, pr := range results {
				if pr.Err != nil {
					return pr.Err
				}
			}
			local, err = o.store.GetAll(ctx, col)
			if err != nil {
				return err
			}
		}

		if err := st.backend.Push(ctx, col, local); err != nil {
			return err
		}
	}

	o.mu.Lock()
	st.conflicts = conflicts
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) setState(st *backendState, s State) {
	o.mu.Lock()
	st.state = s
	o.mu.Unlock()
}

// StatusAll reports the current state of every backend.
func (o *Orchestrator) StatusAll() []Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Status, 0, len(o.order))
	for _, name := range o.order {
		st := o.backends[name]
		s := Status{
			Backend:     name,
			State:       st.state,
			LastSync:    st.lastSync,
			LastAttempt: st.lastAttempt,
			Conflicts:   st.conflicts,
		}
		if st.lastErr != nil {
			s.LastError = st.lastErr.Error()
		}
		out = append(out, s)
	}
	return out
}
