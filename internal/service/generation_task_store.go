package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const taskKeyPrefix = "timetable:generation:task:"

type taskCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// taskStore keeps generation task records for ttl. Redis is used when
// configured so any replica can answer a poll; otherwise records stay in
// process memory.
type taskStore struct {
	cache taskCache
	ttl   time.Duration

	mu    sync.RWMutex
	items map[string]models.GenerationTask
}

func newTaskStore(cache taskCache, ttl time.Duration) *taskStore {
	return &taskStore{
		cache: cache,
		ttl:   ttl,
		items: make(map[string]models.GenerationTask),
	}
}

func (s *taskStore) remote() bool {
	return s.cache != nil && s.cache.Enabled()
}

func (s *taskStore) Save(ctx context.Context, task models.GenerationTask) error {
	if s.remote() {
		return s.cache.Set(ctx, taskKeyPrefix+task.ID, task, s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[task.ID] = task
	return nil
}

// Get returns the task, or false when it is unknown or expired.
func (s *taskStore) Get(ctx context.Context, id string) (models.GenerationTask, bool, error) {
	if s.remote() {
		var task models.GenerationTask
		if err := s.cache.Get(ctx, taskKeyPrefix+id, &task); err != nil {
			if errors.Is(err, appErrors.ErrCacheMiss) {
				return models.GenerationTask{}, false, nil
			}
			return models.GenerationTask{}, false, err
		}
		return task, true, nil
	}

	s.mu.RLock()
	task, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return models.GenerationTask{}, false, nil
	}
	if time.Since(task.CreatedAt) > s.ttl {
		s.Delete(id)
		return models.GenerationTask{}, false, nil
	}
	return task, true, nil
}

func (s *taskStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
