package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"slipway/src/broker"
	"slipway/src/contracts"
	"slipway/src/jenkins"
)

// scriptedJenkins advances queued -> running -> success across successive
// polls and serves a short console.
type scriptedJenkins struct {
	mu           sync.Mutex
	queuePolls   int
	buildPolls   int
	console      string
	server       *httptest.Server
	cancelQueued bool
}

func newScriptedJenkins(t *testing.T) *scriptedJenkins {
	t.Helper()
	s := &scriptedJenkins{console: "hello from jenkins\n"}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

func (s *scriptedJenkins) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/build"):
		w.Header().Set("Location", "http://"+r.Host+"/queue/item/9/")
		w.WriteHeader(http.StatusCreated)

	case r.URL.Path == "/queue/item/9/api/xml":
		s.queuePolls++
		if s.cancelQueued {
			w.Write([]byte("<leftItem><cancelled>true</cancelled></leftItem>"))
			return
		}
		if s.queuePolls < 2 {
			w.Write([]byte("<leftItem><cancelled>false</cancelled></leftItem>"))
			return
		}
		fmt.Fprintf(w, "<leftItem><cancelled>false</cancelled><executable><number>3</number><url>http://%s/job/demo/3/</url></executable></leftItem>", r.Host)

	case r.Method == http.MethodPost && r.URL.Path == "/queue/cancelItem":
		s.cancelQueued = true

	case r.URL.Path == "/job/demo/3/api/xml":
		s.buildPolls++
		if s.buildPolls < 2 {
			w.Write([]byte("<freeStyleBuild><displayName>#3</displayName></freeStyleBuild>"))
			return
		}
		w.Write([]byte("<freeStyleBuild><displayName>#3</displayName><result>SUCCESS</result></freeStyleBuild>"))

	case r.URL.Path == "/job/demo/3/logText/progressiveText":
		w.Header().Set("X-More-Data", "false")
		w.Header().Set("X-Text-Size", fmt.Sprint(len(s.console)))
		w.Write([]byte(s.console))

	default:
		http.NotFound(w, r)
	}
}

type fakeHistory struct {
	mu     sync.Mutex
	states []string
}

func (f *fakeHistory) RecordTrigger(ctx context.Context, job, queueItemURL string) (int64, error) {
	return 42, nil
}

func (f *fakeHistory) RecordState(ctx context.Context, id int64, state, buildURL string, number int64, displayName string, terminal bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func triggerScripted(t *testing.T, s *scriptedJenkins) *jenkins.Build {
	t.Helper()
	client, err := jenkins.NewClient(s.server.URL, "", "")
	if err != nil {
		t.Fatal(err)
	}
	build, err := client.TriggerBuild(context.Background(), "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	return build
}

func TestWatcher_RunToCompletion(t *testing.T) {
	s := newScriptedJenkins(t)
	build := triggerScripted(t, s)

	b := broker.NewInMemoryBroker()
	defer b.Close()
	ctx := context.Background()
	events, err := b.Subscribe(ctx, contracts.TopicBuildEvents, "test")
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := b.Subscribe(ctx, contracts.TopicConsoleChunks, "test")
	if err != nil {
		t.Fatal(err)
	}

	history := &fakeHistory{}
	var snapshots []Snapshot
	w := New(b, history, nil, time.Millisecond)

	state, err := w.Run(ctx, build, func(snap Snapshot) {
		snapshots = append(snapshots, snap)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != jenkins.StateSuccess {
		t.Fatalf("Run() final state = %q, want SUCCESS", state)
	}

	// Lifecycle events arrive in order and never regress.
	wantStates := []string{"QUEUED", "RUNNING", "SUCCESS"}
	for _, want := range wantStates {
		select {
		case msg := <-events:
			var event contracts.BuildEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if event.State != want {
				t.Errorf("event state = %q, want %q", event.State, want)
			}
			if event.Job != "demo" {
				t.Errorf("event job = %q, want demo", event.Job)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", want)
		}
	}

	// Console output was forwarded and terminated with an end marker.
	var console strings.Builder
	sawLast := false
	for !sawLast {
		select {
		case msg := <-chunks:
			var chunk contracts.ConsoleChunk
			if err := json.Unmarshal(msg.Value, &chunk); err != nil {
				t.Fatalf("unmarshal chunk: %v", err)
			}
			console.WriteString(chunk.Content)
			sawLast = chunk.Last
		case <-time.After(time.Second):
			t.Fatal("console chunks never terminated")
		}
	}
	if console.String() != "hello from jenkins\n" {
		t.Errorf("forwarded console = %q", console.String())
	}

	// History followed the same progression.
	history.mu.Lock()
	defer history.mu.Unlock()
	if len(history.states) == 0 || history.states[len(history.states)-1] != "SUCCESS" {
		t.Errorf("recorded states = %v, want trailing SUCCESS", history.states)
	}

	// Snapshots ended terminal with build identity filled in.
	if len(snapshots) == 0 {
		t.Fatal("no snapshots delivered")
	}
	final := snapshots[len(snapshots)-1]
	if final.Number != 3 || !final.State.Terminal() {
		t.Errorf("final snapshot = %+v, want terminal state of build #3", final)
	}
}

func TestWatcher_NilBrokerAndStore(t *testing.T) {
	s := newScriptedJenkins(t)
	build := triggerScripted(t, s)

	w := New(nil, nil, nil, time.Millisecond)
	state, err := w.Run(context.Background(), build, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != jenkins.StateSuccess {
		t.Errorf("Run() = %q, want SUCCESS", state)
	}
}

func TestWatcher_ContextCancellationCancelsBuild(t *testing.T) {
	s := newScriptedJenkins(t)
	// Keep the build stuck in the queue forever.
	s.mu.Lock()
	s.queuePolls = -1 << 30
	s.mu.Unlock()

	build := triggerScripted(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	w := New(nil, nil, nil, time.Millisecond)
	state, err := w.Run(ctx, build, nil)
	if err == nil {
		t.Fatal("Run() returned nil error after context cancellation")
	}
	if state != jenkins.StateCancelled {
		t.Errorf("Run() final state = %q, want CANCELLED via remote cancel", state)
	}
}
