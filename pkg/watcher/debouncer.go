package watcher

import (
	"context"
	"time"

	"github.com/ritzau/pdg-diff/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive re-diffing
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is emitted once no event
// arrived for quietPeriod, or maxWait after its first event at the latest.
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

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet       *time.Timer
		deadline    *time.Timer
		accumulated ChangeEvent
		eventCount  int
	)

	stop := func() {
		if quiet != nil {
			quiet.Stop()
			quiet = nil
		}
		if deadline != nil {
			deadline.Stop()
			deadline = nil
		}
	}
	defer stop()

	flush := func() {
		stop()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount, "side", accumulated.Type)

		accumulated.Timestamp = time.Now()
		select {
		case d.output <- accumulated:
		case <-ctx.Done():
		}
		accumulated = ChangeEvent{}
		eventCount = 0
	}

	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
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

			if eventCount == 0 {
				accumulated.Type = event.Type
				deadline = time.NewTimer(d.maxWait)
			} else {
				accumulated.Type = accumulated.Type.merge(event.Type)
			}
			for _, p := range event.Paths {
				accumulated.Paths = appendUnique(accumulated.Paths, p)
			}
			eventCount++

			// Restart the quiet period
			if quiet != nil {
				quiet.Stop()
			}
			quiet = time.NewTimer(d.quietPeriod)

		case <-timerC(quiet):
			flush()

		case <-timerC(deadline):
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
