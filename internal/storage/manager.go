package storage

import (
	"strings"

	"go.uber.org/zap"
)

// Manager tracks which nodes own independently allocated input/output
// buffers. The graph registers every node's slots after allocation; the
// in-place optimizer deregisters a producer once its output storage has
// been absorbed into a successor.
//
// Lookups are case-insensitive to match graph node naming.
type Manager struct {
	tracked map[string][]*VarGrad
	logger  *zap.Logger
}

// NewManager creates an empty manager. A nil logger disables logging.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tracked: make(map[string][]*VarGrad),
		logger:  logger,
	}
}

// Track registers the slots owned by the named node, replacing any previous
// registration for that node.
func (m *Manager) Track(nodeName string, slots []*VarGrad) {
	key := strings.ToLower(nodeName)
	m.tracked[key] = slots
	m.logger.Debug("tracking node storage",
		zap.String("node", nodeName),
		zap.Int("slots", len(slots)))
}

// Untrack deregisters the named node's buffers: they are no longer
// independently owned, having been absorbed into a successor's storage.
func (m *Manager) Untrack(nodeName string) {
	key := strings.ToLower(nodeName)
	if _, ok := m.tracked[key]; !ok {
		return
	}
	delete(m.tracked, key)
	m.logger.Debug("untracked node storage", zap.String("node", nodeName))
}

// Tracked reports whether the named node still owns its buffers.
func (m *Manager) Tracked(nodeName string) bool {
	_, ok := m.tracked[strings.ToLower(nodeName)]
	return ok
}

// TrackedBytes returns the total bytes of independently tracked storage.
func (m *Manager) TrackedBytes() int {
	n := 0
	for _, slots := range m.tracked {
		for _, s := range slots {
			n += s.SizeBytes()
		}
	}
	return n
}

// Reset drops all registrations. Called when the graph is re-finalized.
func (m *Manager) Reset() {
	m.tracked = make(map[string][]*VarGrad)
}
