// Package reconcile keeps an in-memory note graph converged with the vault on disk
// while absorbing local edits, and pushes every change to a single subscriber.
//
// A Session owns the current graph. One mutex serialises every transition; vault I/O
// happens outside it. The graph is replaced on each transition and never mutated in
// place, so a graph handed out earlier becomes stale rather than torn.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ritzau/notegraph/pkg/builder"
	"github.com/ritzau/notegraph/pkg/delta"
	"github.com/ritzau/notegraph/pkg/history"
	"github.com/ritzau/notegraph/pkg/layout"
	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/metrics"
	"github.com/ritzau/notegraph/pkg/model"
	"github.com/ritzau/notegraph/pkg/vault"
	"github.com/ritzau/notegraph/pkg/watcher"
)

var (
	// ErrNotRunning is returned by operations on a stopped session
	ErrNotRunning = errors.New("session is stopped")

	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("session already started")
)

// Defaults for zero Options fields
const (
	DefaultPollInterval     = time.Second
	DefaultSuppressCooldown = 1500 * time.Millisecond
)

// Delta sources, used as the metrics label
const (
	sourcePoll      = "poll"
	sourceLocal     = "local"
	sourcePositions = "positions"
	sourceUndo      = "undo"
	sourceRedo      = "redo"
)

// Options configures a Session. Zero values pick defaults.
type Options struct {
	PollInterval     time.Duration
	UndoCapacity     int
	SuppressCooldown time.Duration
	Metrics          *metrics.Collector
	Now              func() time.Time
}

// Subscriber receives every non-empty delta, in dispatch order. It is called with the
// session lock held and must not call back into the session.
type Subscriber func(model.Delta)

// Status describes the session after a poll
type Status struct {
	Outcome   PollOutcome
	Nodes     int
	UndoDepth int
	RedoDepth int
	LastPoll  time.Time
}

// Session is the reconciliation context: current graph, last fingerprint, history,
// suppression window and subscriber.
type Session struct {
	source  vault.Source
	writer  vault.Writer
	opts    Options
	metrics *metrics.Collector

	nudge   chan struct{}
	stopped chan struct{}
	done    chan struct{}

	mu            sync.Mutex
	graph         model.Graph
	fingerprint   string
	subscriber    Subscriber
	onStatus      func(Status)
	history       *history.Manager
	suppressUntil time.Time
	alive         bool
	started       bool
	status        Status
	// edits counts local transitions; a poll that saw it change during its fetch
	// holds a listing that predates the edit
	edits uint64
}

// New creates a live session over source and writer. Polling begins with Start;
// PollOnce may be called directly.
func New(source vault.Source, writer vault.Writer, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.UndoCapacity <= 0 {
		opts.UndoCapacity = history.DefaultCapacity
	}
	if opts.SuppressCooldown < 0 {
		opts.SuppressCooldown = 0
	} else if opts.SuppressCooldown == 0 {
		opts.SuppressCooldown = DefaultSuppressCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		source:  source,
		writer:  writer,
		opts:    opts,
		metrics: opts.Metrics,
		nudge:   make(chan struct{}, 1),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		graph:   model.NewGraph(),
		history: history.NewManager(opts.UndoCapacity),
		alive:   true,
	}
}

// Subscribe registers fn as the only subscriber, replacing any previous one.
// A nil fn unregisters.
func (s *Session) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = fn
}

// OnStatus registers fn to be called after every poll, outside the session lock.
func (s *Session) OnStatus(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// Start launches the polling loop. It returns immediately; the loop runs until ctx is
// done or Stop is called.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return ErrNotRunning
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	logging.Info("starting reconcile loop", "interval", s.opts.PollInterval)
	go s.run(ctx)
	return nil
}

// Stop ends the session. It is idempotent. A poll in flight drops its result.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return
	}
	s.alive = false
	close(s.stopped)
	logging.Info("reconcile session stopped")
}

// Wait blocks until the polling loop has exited. It returns at once if Start was never called.
func (s *Session) Wait() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// Nudge asks the loop to poll now instead of waiting out the current delay.
func (s *Session) Nudge() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		s.PollOnce(ctx)

		// The delay starts only after the cycle finished, so at most one fetch is in flight
		timer := time.NewTimer(s.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopped:
			timer.Stop()
			return
		case <-s.nudge:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// PollOnce runs one reconcile cycle: fetch, fingerprint gate, rebuild, position merge,
// dispatch.
func (s *Session) PollOnce(ctx context.Context) PollOutcome {
	outcome := s.poll(ctx)
	s.metrics.RecordPoll(outcome.String())

	s.mu.Lock()
	s.status = Status{
		Outcome:  outcome,
		Nodes:    len(s.graph),
		LastPoll: s.opts.Now(),
	}
	s.status.UndoDepth, s.status.RedoDepth = s.history.Depth()
	status, fn := s.status, s.onStatus
	s.mu.Unlock()

	if fn != nil {
		fn(status)
	}
	return outcome
}

func (s *Session) poll(ctx context.Context) PollOutcome {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return Stopped
	}
	if s.suppressedLocked() {
		s.mu.Unlock()
		logging.Debug("poll suppressed after undo/redo")
		return Suppressed
	}
	edits := s.edits
	s.mu.Unlock()

	listing, err := s.source.List(ctx)
	if err != nil {
		logging.Warn("failed to fetch vault listing", "error", err)
		s.metrics.RecordTransportFailure("list")
		return FetchFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The world may have moved on while we were fetching
	if !s.alive {
		return Stopped
	}
	if s.suppressedLocked() {
		logging.Debug("dropping poll result, undo/redo happened during fetch")
		return Suppressed
	}
	if s.edits != edits {
		// The edit already cleared the fingerprint, so the next cycle rebuilds
		logging.Debug("dropping poll result, local edit happened during fetch")
		return Superseded
	}

	changed, fingerprint := watcher.ShouldProcess(listing, s.fingerprint)
	if !changed {
		logging.Trace("vault unchanged", "notes", len(listing))
		return Unchanged
	}

	start := s.opts.Now()
	fresh := builder.Build(listing, s.graph.IDSet())
	merged := layout.Merge(fresh.Graph, s.graph)
	s.metrics.ObserveRebuild(s.opts.Now().Sub(start))

	d := delta.Changes(s.graph, merged)
	s.graph = merged
	s.fingerprint = fingerprint
	if builder.NeedsHealing(merged) {
		// Forward references resolve on the next pass; keep the gate open for it
		logging.Debug("links left to heal, rebuilding on next poll")
		s.fingerprint = ""
	}
	s.dispatchLocked(d, sourcePoll)

	upserts, deletes := d.Counts()
	if len(listing) == 0 {
		logging.Info("vault is empty", "deletes", deletes)
		return Empty
	}
	logging.Info("applied vault changes", "nodes", len(merged), "upserts", upserts, "deletes", deletes)
	return Applied
}

// Apply folds a local edit into the graph, dispatches it, then writes it to the vault.
// Write failures are logged; the next poll reconciles with whatever reached disk.
func (s *Session) Apply(ctx context.Context, d model.Delta) (model.Delta, error) {
	return s.edit(ctx, func(model.Graph) (model.Delta, error) {
		return d, nil
	})
}

// edit runs fn against the current graph under the lock and applies the delta it returns
// as a local edit.
func (s *Session) edit(ctx context.Context, fn func(current model.Graph) (model.Delta, error)) (model.Delta, error) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return nil, ErrNotRunning
	}

	d, err := fn(s.graph)
	if err != nil || len(d) == 0 {
		s.mu.Unlock()
		return nil, err
	}

	s.history.Record(s.graph)
	s.edits++
	s.graph = delta.Apply(s.graph, d)
	// Disk is about to change; the next poll must not stop at the gate
	s.fingerprint = ""
	s.dispatchLocked(d, sourceLocal)
	s.mu.Unlock()

	s.persist(ctx, d)
	return d, nil
}

// SavePositions updates canvas positions. Positions never reach disk, so there is no
// undo snapshot, no write and the fingerprint stays valid.
func (s *Session) SavePositions(updates []layout.PositionUpdate) (model.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return nil, ErrNotRunning
	}

	next, moved := layout.SavePositions(s.graph, updates)
	s.graph = next
	s.dispatchLocked(moved, sourcePositions)
	return moved, nil
}

// Undo restores the previous snapshot. It reports false when there is nothing to undo.
func (s *Session) Undo(ctx context.Context) (model.Delta, bool, error) {
	return s.jump(ctx, sourceUndo, s.history.Undo)
}

// Redo reapplies the last undone snapshot. It reports false when there is nothing to redo.
func (s *Session) Redo(ctx context.Context) (model.Delta, bool, error) {
	return s.jump(ctx, sourceRedo, s.history.Redo)
}

func (s *Session) jump(ctx context.Context, source string, step func(model.Graph) (model.Graph, bool)) (model.Delta, bool, error) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return nil, false, ErrNotRunning
	}

	restored, ok := step(s.graph)
	if !ok {
		s.mu.Unlock()
		return nil, false, nil
	}

	previous := s.graph
	s.edits++
	s.graph = restored
	d := delta.Diff(previous, restored)
	disk := delta.ContentChanges(previous, restored)
	s.fingerprint = ""
	s.suppressUntil = s.opts.Now().Add(s.opts.SuppressCooldown)
	s.dispatchLocked(d, source)
	s.mu.Unlock()

	logging.Info("history jump", "direction", source, "nodes", len(restored), "disk_changes", len(disk))
	s.persist(ctx, disk)
	return d, true, nil
}

// Invalidate forgets the last fingerprint, so the next poll rebuilds even if the vault
// is unchanged. A rebuild resolves links that pointed forward in the previous listing.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprint = ""
}

// Graph returns a copy of the current graph.
func (s *Session) Graph() model.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Status returns the status recorded by the most recent poll.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Suppressed reports whether polling is currently paused after an undo or redo.
func (s *Session) Suppressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppressedLocked()
}

func (s *Session) suppressedLocked() bool {
	return s.opts.Now().Before(s.suppressUntil)
}

func (s *Session) dispatchLocked(d model.Delta, source string) {
	undo, redo := s.history.Depth()
	s.metrics.SetState(len(s.graph), undo, redo)

	if len(d) == 0 {
		return
	}
	upserts, deletes := d.Counts()
	s.metrics.RecordDelta(source, upserts, deletes)

	if s.subscriber != nil {
		s.subscriber(d)
	}
}

// persist writes d to the vault, operation by operation. It never fails the caller.
func (s *Session) persist(ctx context.Context, d model.Delta) {
	if s.writer == nil {
		return
	}
	for _, op := range d {
		switch o := op.(type) {
		case model.UpsertNode:
			if o.Node == nil {
				continue
			}
			if err := s.writer.Write(ctx, o.Node.ID, o.Node.Content); err != nil {
				logging.Warn("failed to write note", "path", o.Node.ID, "error", err)
				s.metrics.RecordTransportFailure("write")
			}
		case model.DeleteNode:
			if err := s.writer.Delete(ctx, o.ID); err != nil {
				logging.Warn("failed to delete note", "path", o.ID, "error", err)
				s.metrics.RecordTransportFailure("delete")
			}
		}
	}
}
