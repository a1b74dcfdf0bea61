package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/opencampus-io/campus-saas/domains/schools/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development.
type MemoryRepository struct {
	mu     sync.RWMutex
	byCode map[string]service.School
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byCode: make(map[string]service.School)}
}

func (r *MemoryRepository) Create(ctx context.Context, s service.School) (service.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[s.Code]; exists {
		return service.School{}, service.ErrConflictCode
	}
	r.byCode[s.Code] = s
	return s, nil
}

func (r *MemoryRepository) Get(ctx context.Context, code string) (service.School, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byCode[code]
	if !ok {
		return service.School{}, service.ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]service.School, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.School, 0, len(r.byCode))
	for _, s := range r.byCode {
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRepository) SetStatus(ctx context.Context, code string, status service.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byCode[code]
	if !ok {
		return service.ErrNotFound
	}
	s.Status = status
	r.byCode[code] = s
	return nil
}

var _ service.Repository = (*MemoryRepository)(nil)
