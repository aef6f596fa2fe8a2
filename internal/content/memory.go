package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	akerrors "github.com/askbase/askbase/internal/errors"
)

// MemoryStore is an in-memory Store used in tests and by callers that
// load content transiently (e.g. one-shot CLI rebuilds from files).
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]map[string]Item
	listeners []ChangeListener
	closed    bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]map[string]Item)}
}

func (s *MemoryStore) OnChange(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *MemoryStore) notify(projectID string) {
	s.mu.RLock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(projectID)
	}
}

func (s *MemoryStore) Put(_ context.Context, item Item) error {
	if item.ProjectID == "" {
		return akerrors.New(akerrors.ErrCodeInvalidInput, "item project_id is empty", nil)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return akerrors.New(akerrors.ErrCodeContentSource, "content store is closed", nil)
	}
	proj, ok := s.projects[item.ProjectID]
	if !ok {
		proj = make(map[string]Item)
		s.projects[item.ProjectID] = proj
	}
	proj[item.ID] = item
	s.mu.Unlock()

	s.notify(item.ProjectID)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, projectID, id string) error {
	s.mu.Lock()
	proj, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, ok := proj[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(proj, id)
	s.mu.Unlock()

	s.notify(projectID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, projectID, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if item, ok := s.projects[projectID][id]; ok {
		return &item, nil
	}
	return nil, akerrors.New(akerrors.ErrCodeInvalidInput,
		fmt.Sprintf("item %s not found in project %s", id, projectID), nil)
}

func (s *MemoryStore) Snapshot(_ context.Context, projectID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proj := s.projects[projectID]
	items := make([]Item, 0, len(proj))
	for _, item := range proj {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStore) Projects(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.projects))
	for id, proj := range s.projects {
		if len(proj) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
