package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinybites/tinybites/internal/storage"
)

type reportsStorage struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]storage.ReportMeta
}

func newReportsStorage() *reportsStorage {
	return &reportsStorage{reports: make(map[uuid.UUID]storage.ReportMeta)}
}

func (s *reportsStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	s.reports[report.ID] = *report
	return nil
}

func (s *reportsStorage) GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.ReportMeta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok || r.OwnerUserID != ownerUserID {
		return storage.ReportMeta{}, false, nil
	}
	return r, true, nil
}

func (s *reportsStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []storage.ReportMeta
	for _, r := range s.reports {
		if r.OwnerUserID == ownerUserID {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []storage.ReportMeta{}, nil
	}
	list = list[offset:]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *reportsStorage) DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok || r.OwnerUserID != ownerUserID {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}
