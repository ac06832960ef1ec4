// Package contracts defines the message types slipway publishes while
// watching builds.
package contracts

// BuildEvent records one observed state of a triggered build.
// Published to: slipway.builds.events
// Key: {job}
type BuildEvent struct {
	// Full name of the job, e.g. "teams/a".
	Job string `json:"job"`
	// Queue item URL assigned at trigger time; stable for the build's life.
	QueueItemURL string `json:"queue_item_url"`
	// Build URL and number; empty/zero until the build leaves the queue.
	BuildURL string `json:"build_url,omitempty"`
	Number   int64  `json:"number,omitempty"`
	// Display name as of the most recent poll.
	DisplayName string `json:"display_name,omitempty"`
	// QUEUED, CANCELLED, RUNNING, ABORTED, FAILED, UNSTABLE or SUCCESS.
	State string `json:"state"`
	// RFC 3339 observation time.
	Timestamp string `json:"timestamp"`
}

// ConsoleChunk carries one progressive-console fragment.
// Published to: slipway.builds.console
// Key: {job}
type ConsoleChunk struct {
	Job     string `json:"job"`
	Number  int64  `json:"number"`
	Content string `json:"content"`
	// Last indicates the server signalled the end of the log; no further
	// chunks will follow for this build.
	Last      bool   `json:"last"`
	Timestamp string `json:"timestamp"`
}

// Topic names used by the watcher.
const (
	// TopicBuildEvents carries BuildEvent messages.
	TopicBuildEvents = "slipway.builds.events"

	// TopicConsoleChunks carries ConsoleChunk messages.
	TopicConsoleChunks = "slipway.builds.console"
)
