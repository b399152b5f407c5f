package submissionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assessment-pipeline/internal/models"
)

// MemoryStore keeps submissions in process memory. Data does not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Submission
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.Submission), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
	}
	m.records[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return clone(s), nil
}

func (m *MemoryStore) UpdateAnalysis(_ context.Context, id string, analysis models.AnalysisResult) error {
	return m.update(id, func(s *models.Submission) { s.Analysis = &analysis })
}

func (m *MemoryStore) UpdateArtifactURL(_ context.Context, id, artifactURL string) error {
	return m.update(id, func(s *models.Submission) { s.ArtifactURL = artifactURL })
}

func (m *MemoryStore) IncrementDownloadCount(_ context.Context, id string) error {
	return m.update(id, func(s *models.Submission) { s.DownloadCount++ })
}

func (m *MemoryStore) update(id string, fn func(*models.Submission)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	fn(s)
	s.UpdatedAt = m.now().UTC()
	return nil
}
