package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"housing-data-go/pkg/models"
)

// MemoryLogStore is an in-memory LogStore. It backs the CLI's offline mode
// and the pipeline tests; production deployments use the Postgres store.
type MemoryLogStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.ScrapingLog
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{nextID: 1, rows: make(map[int64]models.ScrapingLog)}
}

func (m *MemoryLogStore) CreateLog(_ context.Context, log *models.ScrapingLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	row := *log
	row.ID = id
	m.rows[id] = row
	return id, nil
}

func (m *MemoryLogStore) UpdateLog(_ context.Context, log *models.ScrapingLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[log.ID]; !ok {
		return fmt.Errorf("log %d not found", log.ID)
	}
	m.rows[log.ID] = *log
	return nil
}

func (m *MemoryLogStore) ListLogs(_ context.Context, page, limit int) ([]models.ScrapingLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.ScrapingLog, 0, len(m.rows))
	for _, row := range m.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []models.ScrapingLog{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}
