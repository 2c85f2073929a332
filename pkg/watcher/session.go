package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/pdg-diff/pkg/engine"
	"github.com/ritzau/pdg-diff/pkg/loader"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/pubsub"
)

// Default debounce timing for document saves
const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// Differ compares two program versions
type Differ interface {
	Diff(ctx context.Context, before, after *loader.Program) (*engine.Result, error)
}

// Session keeps the diff of two documents current while they are edited
type Session struct {
	oldPath   string
	newPath   string
	oldSource loader.Source
	newSource loader.Source
	differ    Differ

	publisher   pubsub.Publisher
	onResult    func(*engine.Result)
	quietPeriod time.Duration
	maxWait     time.Duration

	mu     sync.RWMutex
	before *loader.Program
	after  *loader.Program
	latest *engine.Result
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithPublisher streams status and results to subscribers
func WithPublisher(p pubsub.Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithDebounce overrides the debounce timing
func WithDebounce(quietPeriod, maxWait time.Duration) SessionOption {
	return func(s *Session) {
		s.quietPeriod = quietPeriod
		s.maxWait = maxWait
	}
}

// OnResult registers a callback invoked after every successful diff
func OnResult(fn func(*engine.Result)) SessionOption {
	return func(s *Session) { s.onResult = fn }
}

// NewSession creates a session over two document files
func NewSession(oldPath, newPath string, differ Differ, opts ...SessionOption) *Session {
	s := &Session{
		oldPath:     oldPath,
		newPath:     newPath,
		oldSource:   loader.NewFileSource(oldPath),
		newSource:   loader.NewFileSource(newPath),
		differ:      differ,
		quietPeriod: DefaultQuietPeriod,
		maxWait:     DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the most recent successful result, or nil
func (s *Session) Latest() *engine.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Refresh reloads the documents named by the analysis and diffs again. On
// failure the previous programs and result are kept.
func (s *Session) Refresh(ctx context.Context, analysis *ChangeAnalysis) (*engine.Result, error) {
	s.mu.RLock()
	before, after := s.before, s.after
	s.mu.RUnlock()

	s.publishStatus(pubsub.DiffStatus{
		State:   pubsub.StateLoading,
		Message: "Loading documents",
		Changed: analysis.ChangedFiles,
	})

	var err error
	if analysis.ReloadOld || before == nil {
		if before, err = s.oldSource.Load(ctx); err != nil {
			return nil, s.fail(fmt.Errorf("failed to load old version: %w", err))
		}
	}
	if analysis.ReloadNew || after == nil {
		if after, err = s.newSource.Load(ctx); err != nil {
			return nil, s.fail(fmt.Errorf("failed to load new version: %w", err))
		}
	}

	s.publishStatus(pubsub.DiffStatus{State: pubsub.StateDiffing, Message: "Diffing " + after.Class})

	result, err := s.differ.Diff(ctx, before, after)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.before, s.after, s.latest = before, after, result
	s.mu.Unlock()

	s.publishStatus(pubsub.DiffStatus{
		State:   pubsub.StateReady,
		Message: fmt.Sprintf("Edit distance %d", result.Distance),
		RunID:   result.RunID,
		Changed: analysis.ChangedFiles,
	})
	s.publish(pubsub.TopicResult, pubsub.StateReady, result)

	if s.onResult != nil {
		s.onResult(result)
	}
	return result, nil
}

// Run diffs once, then re-diffs on every debounced document change until the
// context is cancelled. A failing refresh is reported and the session goes on.
func (s *Session) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx, fullReload()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logging.Warn("initial diff failed, waiting for changes", "error", err)
	}

	fw, err := NewFileWatcher(s.oldPath, s.newPath)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	defer fw.Stop()

	debouncer := NewDebouncer(fw.Events(), s.quietPeriod, s.maxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		analysis := AnalyzeChanges(event)
		if !analysis.NeedsDiff() {
			continue
		}

		logging.Info("documents changed, re-running diff", "side", event.Type, "files", len(event.Paths))
		if _, err := s.Refresh(ctx, analysis); err != nil {
			if ctx.Err() != nil {
				break
			}
			logging.Warn("diff failed, keeping previous result", "error", err)
		}
	}
	return nil
}

func (s *Session) fail(err error) error {
	if !errors.Is(err, context.Canceled) {
		s.publishStatus(pubsub.DiffStatus{State: pubsub.StateFailed, Message: err.Error()})
	}
	return err
}

func (s *Session) publishStatus(status pubsub.DiffStatus) {
	s.publish(pubsub.TopicStatus, status.State, status)
}

func (s *Session) publish(topic, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(topic, eventType, data); err != nil {
		logging.Debug("failed to publish event", "topic", topic, "error", err)
	}
}
