// Package rebuild schedules background index builds in response to
// content changes. Builds are single-flight per project: while one is
// running, further triggers are absorbed and satisfied by a dirtiness
// re-check once the build finishes.
package rebuild

import (
	"sync"
	"sync/atomic"
	"time"
)

// BuildState is a snapshot of a project's rebuild bookkeeping, used by
// the status operation.
type BuildState struct {
	ProjectID    string
	Building     bool
	LastStarted  time.Time
	LastFinished time.Time
	LastError    string
	BuildCount   int64
	RejectCount  int64
}

// projectState holds the single-flight flag and counters for one
// project.
type projectState struct {
	building atomic.Bool

	mu           sync.Mutex
	lastStarted  time.Time
	lastFinished time.Time
	lastError    string
	buildCount   int64
	rejectCount  int64
}

// Manager enforces the one-build-per-project rule.
type Manager struct {
	mu       sync.Mutex
	projects map[string]*projectState
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{projects: make(map[string]*projectState)}
}

func (m *Manager) state(projectID string) *projectState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.projects[projectID]
	if st == nil {
		st = &projectState{}
		m.projects[projectID] = st
	}
	return st
}

// TryBegin claims the build slot for a project. It returns false when
// a build is already in flight, in which case the caller must not
// build.
func (m *Manager) TryBegin(projectID string) bool {
	st := m.state(projectID)
	if !st.building.CompareAndSwap(false, true) {
		st.mu.Lock()
		st.rejectCount++
		st.mu.Unlock()
		return false
	}
	st.mu.Lock()
	st.lastStarted = time.Now().UTC()
	st.mu.Unlock()
	return true
}

// End releases the build slot and records the outcome.
func (m *Manager) End(projectID string, err error) {
	st := m.state(projectID)
	st.mu.Lock()
	st.lastFinished = time.Now().UTC()
	st.buildCount++
	if err != nil {
		st.lastError = err.Error()
	} else {
		st.lastError = ""
	}
	st.mu.Unlock()
	st.building.Store(false)
}

// Building reports whether a build is in flight for the project.
func (m *Manager) Building(projectID string) bool {
	return m.state(projectID).building.Load()
}

// State returns the project's rebuild bookkeeping.
func (m *Manager) State(projectID string) BuildState {
	st := m.state(projectID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return BuildState{
		ProjectID:    projectID,
		Building:     st.building.Load(),
		LastStarted:  st.lastStarted,
		LastFinished: st.lastFinished,
		LastError:    st.lastError,
		BuildCount:   st.buildCount,
		RejectCount:  st.rejectCount,
	}
}
