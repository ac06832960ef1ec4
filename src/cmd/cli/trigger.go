package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"slipway/src/broker"
	"slipway/src/jenkins"
	"slipway/src/logger"
	"slipway/src/store"
	"slipway/src/tui"
	"slipway/src/watcher"
)

var (
	buildParams  []string
	detach       bool
	follow       bool
	pollInterval time.Duration
)

// triggerCmd triggers a build and, unless detached, drives it to completion.
var triggerCmd = &cobra.Command{
	Use:   "trigger <job>",
	Short: "Trigger a build and follow it to completion",
	Long: `Triggers a build of the named job and polls it until it finishes,
streaming console output as it becomes available. Interrupting the command
cancels the remote build.

With --detach the command returns immediately after enqueueing, printing the
queue item URL. With --follow the build is shown in an interactive terminal
UI instead of plain streaming output.

When SLIPWAY_BROKERS is set, state changes and console output are also
published to the configured brokers. When SLIPWAY_DB_DSN is set, the build
is recorded in the history store.

Examples:
  slipway trigger teams/a/deploy --param BRANCH=main
  slipway trigger teams/a/deploy --detach
  slipway trigger teams/a/deploy --follow`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job := args[0]
		params, err := parseParams(buildParams)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		build, err := client.TriggerBuild(ctx, job, params)
		if err != nil {
			return fmt.Errorf("trigger %s: %w", job, err)
		}

		if detach {
			fmt.Printf("queued %s\n", job)
			fmt.Printf("queue item: %s\n", build.QueueItemURL())
			return nil
		}

		watchLog := log
		if follow {
			// The TUI owns the terminal; log output would corrupt it.
			watchLog = logger.NewSilentLogger()
		}
		w, cleanup, err := newWatcher(watchLog)
		if err != nil {
			return err
		}
		defer cleanup()

		var state jenkins.BuildState
		if follow {
			state, err = followBuild(ctx, w, build)
		} else {
			state, err = streamBuild(ctx, w, build)
		}
		if err != nil {
			if err == context.Canceled {
				return fmt.Errorf("interrupted, build left in state %s", state)
			}
			return err
		}
		if state != jenkins.StateSuccess {
			return fmt.Errorf("build finished %s", state)
		}
		fmt.Printf("build finished %s\n", state)
		return nil
	},
}

// newWatcher assembles a watcher from the optional broker and store
// integrations. The returned cleanup closes whatever was opened.
func newWatcher(watchLog logger.Logger) (*watcher.Watcher, func(), error) {
	var brk broker.Broker
	var hist watcher.HistoryStore
	var closers []func()

	if len(appConfig.Brokers) > 0 {
		rp, err := broker.NewRedpandaBroker(appConfig.Brokers, watchLog)
		if err != nil {
			return nil, nil, fmt.Errorf("connect brokers: %w", err)
		}
		brk = rp
		closers = append(closers, func() { _ = rp.Close() })
		watchLog.Debug("publishing build events to %v", appConfig.Brokers)
	}

	if appConfig.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(appConfig.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect history store: %w", err)
		}
		hist = pg
		closers = append(closers, func() { _ = pg.Close() })
		watchLog.Debug("recording build history")
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return watcher.New(brk, hist, watchLog, pollInterval), cleanup, nil
}

// streamBuild follows the build with plain line output: state changes on
// stderr, console output on stdout.
func streamBuild(ctx context.Context, w *watcher.Watcher, build *jenkins.Build) (jenkins.BuildState, error) {
	lastState := jenkins.BuildState("")
	return w.Run(ctx, build, func(s watcher.Snapshot) {
		if s.State != lastState {
			lastState = s.State
			name := build.Job()
			if s.DisplayName != "" {
				name = fmt.Sprintf("%s %s", name, s.DisplayName)
			}
			fmt.Fprintf(os.Stderr, "--- %s: %s\n", name, s.State)
		}
		if s.Chunk != "" {
			fmt.Print(s.Chunk)
		}
	})
}

// followBuild follows the build in the interactive terminal UI. Quitting the
// UI before the build finishes cancels it.
func followBuild(ctx context.Context, w *watcher.Watcher, build *jenkins.Build) (jenkins.BuildState, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		state jenkins.BuildState
		err   error
	}
	done := make(chan outcome, 1)

	uiErr := tui.RunWatch(tui.NewWatchModel(build.Job()), func(send func(msg tea.Msg)) {
		state, err := w.Run(ctx, build, func(s watcher.Snapshot) {
			send(tui.SnapshotMsg(s))
		})
		send(tui.WatchDoneMsg{State: state, Err: err})
		done <- outcome{state: state, err: err}
	})

	// The UI is gone; make sure the watch loop winds down (cancelling the
	// remote build if it is still going) before reporting.
	cancel()
	result := <-done

	if uiErr != nil {
		return result.state, uiErr
	}
	return result.state, result.err
}

func init() {
	triggerCmd.Flags().StringArrayVar(&buildParams, "param", nil, "build parameter as key=value (repeatable)")
	triggerCmd.Flags().BoolVar(&detach, "detach", false, "enqueue the build and exit immediately")
	triggerCmd.Flags().BoolVar(&follow, "follow", false, "follow the build in an interactive terminal UI")
	triggerCmd.Flags().DurationVar(&pollInterval, "interval", 0, "poll interval (default 2s)")
}
