package jenkins

import (
	"fmt"
	"net/url"
	"strings"
)

// itemPath maps a full item name to its URL path: "teams/a" -> "/job/teams/job/a".
// Segment values are escaped so names with spaces survive the round trip.
func itemPath(fullName string) string {
	var b strings.Builder
	for _, seg := range splitFullName(fullName) {
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// splitParent splits a full item name into the parent folder path and the
// leaf name. The parent is empty for top-level items.
func splitParent(fullName string) (parent, leaf string) {
	segs := splitFullName(fullName)
	if len(segs) == 0 {
		return "", ""
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1]
}

func splitFullName(fullName string) []string {
	var segs []string
	for _, seg := range strings.Split(fullName, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// cancelQueueItemURL derives the queue-cancellation endpoint from a queue-item
// URL (".../queue/item/123/" -> ".../queue/cancelItem?id=123"). The server
// keys cancellation on the item id, not the item URL, so the id is carved out
// of the path. Callers must tolerate a spurious 404 from the resulting
// endpoint: the server is known to report 404 even when the cancellation
// took effect.
func cancelQueueItemURL(queueItemURL string) (string, error) {
	trimmed := strings.TrimRight(queueItemURL, "/")
	i := strings.LastIndex(trimmed, "/item/")
	if i < 0 {
		return "", fmt.Errorf("queue item URL %q has no /item/ segment", queueItemURL)
	}
	id := trimmed[i+len("/item/"):]
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("queue item URL %q has no item id", queueItemURL)
	}
	return trimmed[:i] + "/cancelItem?id=" + url.QueryEscape(id), nil
}
