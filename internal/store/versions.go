package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	akerrors "github.com/askbase/askbase/internal/errors"
)

// VersionStore tracks index versions per project and the pointer to
// the version currently serving queries. Publishing swaps the pointer
// atomically under the store lock; queries grab the current version
// once and keep using it even if a newer version is published
// mid-query.
type VersionStore struct {
	mu       sync.RWMutex
	projects map[string]*projectVersions

	// retain is how many prior ready versions survive beyond the
	// current one.
	retain int
}

type projectVersions struct {
	nextID   int64
	versions map[int64]*IndexVersion
	current  int64 // 0 means no published version
}

// NewVersionStore creates a store retaining the given number of prior
// versions per project.
func NewVersionStore(retain int) *VersionStore {
	if retain < 1 {
		retain = 1
	}
	return &VersionStore{
		projects: make(map[string]*projectVersions),
		retain:   retain,
	}
}

// Begin reserves a version ID and returns a new version in the
// building state. The version stays private to its builder until
// Complete registers it; readers of the store never observe a version
// that is still being mutated. Version IDs increase monotonically
// within a project.
func (s *VersionStore) Begin(projectID, fingerprint string) *IndexVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := s.projects[projectID]
	if proj == nil {
		proj = &projectVersions{versions: make(map[int64]*IndexVersion)}
		s.projects[projectID] = proj
	}

	proj.nextID++
	return &IndexVersion{
		VersionID:   proj.nextID,
		ProjectID:   projectID,
		Status:      StatusBuilding,
		Fingerprint: fingerprint,
		BuiltAt:     time.Now().UTC(),
	}
}

// Complete registers a finished version so it can be published and
// listed. The caller must not mutate the version after this call.
func (s *VersionStore) Complete(v *IndexVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := s.projects[v.ProjectID]
	if proj == nil {
		return akerrors.New(akerrors.ErrCodeVersionNotFound,
			"version was not begun through this store", nil).
			WithDetail("project_id", v.ProjectID)
	}
	proj.versions[v.VersionID] = v
	return nil
}

// Publish makes a ready version the current one for its project and
// prunes versions beyond the retention window. Publishing a version
// that is not ready fails with a publish conflict.
func (s *VersionStore) Publish(projectID string, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := s.projects[projectID]
	if proj == nil {
		return akerrors.New(akerrors.ErrCodeVersionNotFound,
			"no versions exist for project "+projectID, nil)
	}
	v, ok := proj.versions[versionID]
	if !ok {
		return akerrors.New(akerrors.ErrCodeVersionNotFound,
			"version not found", nil).WithDetail("project_id", projectID)
	}
	if v.Status != StatusReady {
		return akerrors.PublishConflict(projectID, versionID, string(v.Status))
	}

	prev := proj.current
	proj.current = versionID

	slog.Info("index_published",
		"project_id", projectID,
		"version_id", versionID,
		"previous_version_id", prev,
		"item_count", v.ItemCount,
		"skipped_embeddings", v.SkippedEmbeddings)

	s.pruneLocked(projectID, proj)
	return nil
}

// GetCurrent returns the currently published version for a project.
func (s *VersionStore) GetCurrent(projectID string) (*IndexVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proj := s.projects[projectID]
	if proj == nil || proj.current == 0 {
		return nil, akerrors.NoIndexAvailable(projectID)
	}
	return proj.versions[proj.current], nil
}

// CurrentFingerprint returns the published version's snapshot
// fingerprint, or empty when nothing is published.
func (s *VersionStore) CurrentFingerprint(projectID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proj := s.projects[projectID]
	if proj == nil || proj.current == 0 {
		return ""
	}
	return proj.versions[proj.current].Fingerprint
}

// List returns all tracked versions for a project, newest first.
func (s *VersionStore) List(projectID string) []*IndexVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proj := s.projects[projectID]
	if proj == nil {
		return nil
	}
	out := make([]*IndexVersion, 0, len(proj.versions))
	for _, v := range proj.versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionID > out[j].VersionID })
	return out
}

// Drop removes a registered version that never became current,
// releasing its indexes. The current version cannot be dropped.
func (s *VersionStore) Drop(projectID string, versionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := s.projects[projectID]
	if proj == nil || proj.current == versionID {
		return
	}
	if v, ok := proj.versions[versionID]; ok {
		delete(proj.versions, versionID)
		_ = v.Close()
	}
}

// pruneLocked removes versions beyond the retention window: the
// current version plus up to retain prior ready versions stay, along
// with any build still in flight. Failed versions older than the
// current are removed.
func (s *VersionStore) pruneLocked(projectID string, proj *projectVersions) {
	ids := make([]int64, 0, len(proj.versions))
	for id := range proj.versions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	keptPrior := 0
	for _, id := range ids {
		v := proj.versions[id]
		if id == proj.current || v.Status == StatusBuilding {
			continue
		}
		if v.Status == StatusReady && id < proj.current && keptPrior < s.retain {
			keptPrior++
			continue
		}
		if id > proj.current && v.Status == StatusReady {
			// A ready version newer than current can still be
			// published; keep it.
			continue
		}
		delete(proj.versions, id)
		_ = v.Close()
		slog.Debug("index_version_pruned",
			"project_id", projectID,
			"version_id", id,
			"status", v.Status)
	}
}

// Close releases every version in the store.
func (s *VersionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, proj := range s.projects {
		for _, v := range proj.versions {
			_ = v.Close()
		}
	}
	s.projects = make(map[string]*projectVersions)
	return nil
}
