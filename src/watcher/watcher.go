// Package watcher drives a triggered build to completion: it paces the
// polling loop the jenkins client deliberately leaves to its caller,
// publishes lifecycle events, records history and forwards console output.
package watcher

import (
	"context"
	"encoding/json"
	"time"

	"slipway/src/broker"
	"slipway/src/contracts"
	"slipway/src/jenkins"
	"slipway/src/logger"
)

const defaultPollInterval = 2 * time.Second

// HistoryStore is the slice of the build-history store the watcher needs.
type HistoryStore interface {
	RecordTrigger(ctx context.Context, job, queueItemURL string) (int64, error)
	RecordState(ctx context.Context, id int64, state, buildURL string, number int64, displayName string, terminal bool) error
}

// Snapshot is one observation pushed to the caller's update callback.
type Snapshot struct {
	State       jenkins.BuildState
	BuildURL    string
	Number      int64
	DisplayName string
	// Chunk holds console output fetched since the previous snapshot;
	// often empty.
	Chunk string
}

// Watcher watches builds. The broker and store are optional; a nil broker
// publishes nothing and a nil store records nothing.
type Watcher struct {
	broker   broker.Broker
	store    HistoryStore
	log      logger.Logger
	interval time.Duration
}

// New creates a Watcher polling at the given interval (0 means the default
// of two seconds).
func New(brk broker.Broker, store HistoryStore, log logger.Logger, interval time.Duration) *Watcher {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{broker: brk, store: store, log: log, interval: interval}
}

// Run polls build until it reaches a terminal state and returns that state.
// Every state change and console chunk is passed to onUpdate (which may be
// nil) and published to the broker. When ctx is cancelled the remote build
// is cancelled best-effort before returning ctx's error.
func (w *Watcher) Run(ctx context.Context, build *jenkins.Build, onUpdate func(Snapshot)) (jenkins.BuildState, error) {
	recordID := w.recordTrigger(ctx, build)

	lastState := build.LastState()
	w.announce(ctx, build, recordID, lastState)
	w.notify(onUpdate, build, "")

	for {
		state, err := build.State(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return w.abandon(build, recordID, onUpdate)
			}
			return state, err
		}

		if state != lastState {
			lastState = state
			w.announce(ctx, build, recordID, state)
			w.notify(onUpdate, build, "")
		}

		if state.Terminal() {
			w.drainConsole(ctx, build, onUpdate)
			return state, nil
		}

		if state == jenkins.StateRunning {
			if !w.forwardChunk(ctx, build, onUpdate) {
				return w.abandon(build, recordID, onUpdate)
			}
		}

		select {
		case <-ctx.Done():
			return w.abandon(build, recordID, onUpdate)
		case <-time.After(w.interval):
		}
	}
}

// forwardChunk pulls at most one console chunk and forwards it. It returns
// false only when the context died underneath the fetch.
func (w *Watcher) forwardChunk(ctx context.Context, build *jenkins.Build, onUpdate func(Snapshot)) bool {
	chunk, ok, err := build.NextConsoleChunk(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.log.Error("console fetch for %s: %v", build.Job(), err)
		return true
	}
	if ok && chunk != "" {
		w.publishChunk(ctx, build, chunk, false)
		w.notify(onUpdate, build, chunk)
	}
	return true
}

// drainConsole empties the progressive-console cursor after the build
// finished so callers see the complete log, then publishes an end-of-log
// marker. Builds cancelled in the queue never ran and get no marker.
func (w *Watcher) drainConsole(ctx context.Context, build *jenkins.Build, onUpdate func(Snapshot)) {
	if build.URL() == "" {
		return
	}
	for {
		chunk, ok, err := build.NextConsoleChunk(ctx)
		if err != nil {
			w.log.Error("console drain for %s: %v", build.Job(), err)
			return
		}
		if !ok {
			w.publishChunk(ctx, build, "", true)
			return
		}
		if chunk != "" {
			w.publishChunk(ctx, build, chunk, false)
			w.notify(onUpdate, build, chunk)
		}
	}
}

// abandon handles context cancellation: the remote build is cancelled with a
// short independent deadline, and whatever state that leaves behind is
// recorded.
func (w *Watcher) abandon(build *jenkins.Build, recordID int64, onUpdate func(Snapshot)) (jenkins.BuildState, error) {
	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelled, err := build.Cancel(cancelCtx)
	if err != nil {
		w.log.Error("cancel build of %s: %v", build.Job(), err)
	} else if cancelled {
		w.log.Info("cancelled build of %s", build.Job())
	}
	w.announce(cancelCtx, build, recordID, build.LastState())
	w.notify(onUpdate, build, "")
	return build.LastState(), context.Canceled
}

func (w *Watcher) notify(onUpdate func(Snapshot), build *jenkins.Build, chunk string) {
	if onUpdate == nil {
		return
	}
	onUpdate(Snapshot{
		State:       build.LastState(),
		BuildURL:    build.URL(),
		Number:      build.Number(),
		DisplayName: build.DisplayName(),
		Chunk:       chunk,
	})
}

func (w *Watcher) recordTrigger(ctx context.Context, build *jenkins.Build) int64 {
	if w.store == nil {
		return 0
	}
	id, err := w.store.RecordTrigger(ctx, build.Job(), build.QueueItemURL())
	if err != nil {
		w.log.Error("record trigger of %s: %v", build.Job(), err)
		return 0
	}
	return id
}

// announce publishes a BuildEvent and updates the history row. Failures are
// logged and swallowed: observability must not break the watch.
func (w *Watcher) announce(ctx context.Context, build *jenkins.Build, recordID int64, state jenkins.BuildState) {
	if w.store != nil && recordID != 0 {
		err := w.store.RecordState(ctx, recordID, string(state), build.URL(), build.Number(), build.DisplayName(), state.Terminal())
		if err != nil {
			w.log.Error("record state of %s: %v", build.Job(), err)
		}
	}

	if w.broker == nil {
		return
	}
	event := contracts.BuildEvent{
		Job:          build.Job(),
		QueueItemURL: build.QueueItemURL(),
		BuildURL:     build.URL(),
		Number:       build.Number(),
		DisplayName:  build.DisplayName(),
		State:        string(state),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(event)
	if err != nil {
		w.log.Error("marshal build event for %s: %v", build.Job(), err)
		return
	}
	if err := w.broker.Publish(ctx, contracts.TopicBuildEvents, build.Job(), data); err != nil {
		w.log.Error("publish build event for %s: %v", build.Job(), err)
	}
}

func (w *Watcher) publishChunk(ctx context.Context, build *jenkins.Build, chunk string, last bool) {
	if w.broker == nil {
		return
	}
	msg := contracts.ConsoleChunk{
		Job:       build.Job(),
		Number:    build.Number(),
		Content:   chunk,
		Last:      last,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		w.log.Error("marshal console chunk for %s: %v", build.Job(), err)
		return
	}
	if err := w.broker.Publish(ctx, contracts.TopicConsoleChunks, build.Job(), data); err != nil {
		w.log.Error("publish console chunk for %s: %v", build.Job(), err)
	}
}
