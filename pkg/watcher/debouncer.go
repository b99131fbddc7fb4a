package watcher

import (
	"context"
	"time"

	"github.com/ritzau/notegraph/pkg/logging"
)

// Debouncer batches rapid file system events so a burst of saves becomes one nudge
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet   *time.Timer
		maxWait *time.Timer
		pending []string
		seen    = make(map[string]bool)
	)

	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	flush := func() {
		if quiet != nil {
			quiet.Stop()
			quiet = nil
		}
		if maxWait != nil {
			maxWait.Stop()
			maxWait = nil
		}
		if len(pending) == 0 {
			return
		}

		logging.Debug("flushing accumulated vault events", "count", len(pending))
		select {
		case d.output <- ChangeEvent{Paths: pending, Timestamp: time.Now()}:
		case <-ctx.Done():
		}
		pending = nil
		seen = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					pending = append(pending, p)
				}
			}

			// Reset quiet period timer
			if quiet != nil {
				quiet.Stop()
			}
			quiet = time.NewTimer(d.quietPeriod)

			// Start max wait timer on first event
			if maxWait == nil {
				maxWait = time.NewTimer(d.maxWait)
			}

		case <-timerC(quiet):
			flush()

		case <-timerC(maxWait):
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
