package mcp

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"slipway/src/jenkins"
)

// BuildRegistry keeps triggered Build handles addressable across stateless
// tool calls. Handles live for the server process; callers that stop polling
// simply leave an idle entry behind.
type BuildRegistry struct {
	mu     sync.Mutex
	builds map[string]*jenkins.Build
}

// NewBuildRegistry creates an empty registry.
func NewBuildRegistry() *BuildRegistry {
	return &BuildRegistry{builds: make(map[string]*jenkins.Build)}
}

// Add stores a build and returns its generated id.
func (r *BuildRegistry) Add(build *jenkins.Build) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := newBuildID()
	for _, taken := r.builds[id]; taken; _, taken = r.builds[id] {
		id = newBuildID()
	}
	r.builds[id] = build
	return id
}

// Get looks a build up by id.
func (r *BuildRegistry) Get(id string) (*jenkins.Build, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	build, ok := r.builds[id]
	return build, ok
}

func newBuildID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	return hex.EncodeToString(b)
}
