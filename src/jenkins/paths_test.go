package jenkins

import (
	"testing"
)

func TestItemPath(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		want     string
	}{
		{
			name:     "top-level item",
			fullName: "demo",
			want:     "/job/demo",
		},
		{
			name:     "nested item",
			fullName: "teams/a",
			want:     "/job/teams/job/a",
		},
		{
			name:     "deeply nested item",
			fullName: "teams/platform/release",
			want:     "/job/teams/job/platform/job/release",
		},
		{
			name:     "leading and trailing separators",
			fullName: "/teams/a/",
			want:     "/job/teams/job/a",
		},
		{
			name:     "name with spaces",
			fullName: "teams/my job",
			want:     "/job/teams/job/my%20job",
		},
		{
			name:     "empty name",
			fullName: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemPath(tt.fullName); got != tt.want {
				t.Errorf("itemPath(%q) = %q, want %q", tt.fullName, got, tt.want)
			}
		})
	}
}

func TestSplitParent(t *testing.T) {
	tests := []struct {
		name       string
		fullName   string
		wantParent string
		wantLeaf   string
	}{
		{name: "top-level", fullName: "demo", wantParent: "", wantLeaf: "demo"},
		{name: "nested", fullName: "teams/a", wantParent: "teams", wantLeaf: "a"},
		{name: "deeply nested", fullName: "a/b/c", wantParent: "a/b", wantLeaf: "c"},
		{name: "empty", fullName: "", wantParent: "", wantLeaf: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent, leaf := splitParent(tt.fullName)
			if parent != tt.wantParent || leaf != tt.wantLeaf {
				t.Errorf("splitParent(%q) = (%q, %q), want (%q, %q)",
					tt.fullName, parent, leaf, tt.wantParent, tt.wantLeaf)
			}
		})
	}
}

func TestCancelQueueItemURL(t *testing.T) {
	tests := []struct {
		name     string
		queueURL string
		want     string
		wantErr  bool
	}{
		{
			name:     "with trailing slash",
			queueURL: "http://ci.example.com/queue/item/123/",
			want:     "http://ci.example.com/queue/cancelItem?id=123",
		},
		{
			name:     "without trailing slash",
			queueURL: "http://ci.example.com/queue/item/45",
			want:     "http://ci.example.com/queue/cancelItem?id=45",
		},
		{
			name:     "no item segment",
			queueURL: "http://ci.example.com/queue/",
			wantErr:  true,
		},
		{
			name:     "missing id",
			queueURL: "http://ci.example.com/queue/item/",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cancelQueueItemURL(tt.queueURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cancelQueueItemURL(%q) error = %v, wantErr %v", tt.queueURL, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("cancelQueueItemURL(%q) = %q, want %q", tt.queueURL, got, tt.want)
			}
		})
	}
}
