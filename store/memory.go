package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/novelhub/storyrec/core"
)

// MemoryStore 是全内存实现，同时满足目录、行为、画像三个存储契约。
// 用于示例、测试与离线评估，线程安全。
type MemoryStore struct {
	mu           sync.RWMutex
	stories      map[int64]*core.StoryRecord
	interactions []*core.InteractionRecord
	profiles     map[int64]*core.UserProfile
}

var (
	_ core.CatalogStore     = (*MemoryStore)(nil)
	_ core.InteractionStore = (*MemoryStore)(nil)
	_ core.ProfileStore     = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stories:  make(map[int64]*core.StoryRecord),
		profiles: make(map[int64]*core.UserProfile),
	}
}

// AddStory 写入或覆盖一条故事记录。
func (m *MemoryStore) AddStory(s *core.StoryRecord) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.stories[s.ID] = &cp
}

// AddInteraction 写入一条行为记录。同一 (用户, 故事, 章节, 类型) 的记录
// 会被覆盖而不是追加，阅读进度更新不会产生重复行。
func (m *MemoryStore) AddInteraction(it *core.InteractionRecord) {
	if it == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *it
	for i, old := range m.interactions {
		if old.UserID == it.UserID && old.StoryID == it.StoryID &&
			old.ChapterID == it.ChapterID && old.Kind == it.Kind {
			m.interactions[i] = &cp
			return
		}
	}
	m.interactions = append(m.interactions, &cp)
}

func (m *MemoryStore) GetStoryByID(ctx context.Context, id int64) (*core.StoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, core.ErrStoryNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) GetStoriesByIDs(ctx context.Context, ids []int64) ([]*core.StoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.StoryRecord, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.stories[id]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetStoriesByGenre(ctx context.Context, genreID int64, limit int) ([]*core.StoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*core.StoryRecord
	for _, s := range m.stories {
		for _, g := range s.Genres {
			if g.ID == genreID {
				cp := *s
				out = append(out, &cp)
				break
			}
		}
	}
	// 同题材内按平均分降序，稳定可复现
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) GetTrendingStories(ctx context.Context, since time.Time, limit int) ([]*core.StoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[int64]int)
	for _, it := range m.interactions {
		if it.Timestamp.Before(since) {
			continue
		}
		counts[it.StoryID]++
	}
	var out []*core.StoryRecord
	for id := range counts {
		if s, ok := m.stories[id]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i].ID] != counts[out[j].ID] {
			return counts[out[i].ID] > counts[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) GetTopRatedStories(ctx context.Context, limit int) ([]*core.StoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.StoryRecord, 0, len(m.stories))
	for _, s := range m.stories {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) GetNewestStories(ctx context.Context, since time.Time, limit int) ([]*core.StoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*core.StoryRecord
	for _, s := range m.stories {
		if s.CreatedAt.Before(since) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) CountStories(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stories), nil
}

func (m *MemoryStore) GetInteractions(ctx context.Context, userID int64, kind core.InteractionKind, limit int) ([]*core.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*core.InteractionRecord
	for _, it := range m.interactions {
		if it.UserID != userID || it.Kind != kind {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	// 最近的在前
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) GetStoryRatings(ctx context.Context, storyID int64, limit int) ([]*core.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*core.InteractionRecord
	for _, it := range m.interactions {
		if it.StoryID != storyID || it.Kind != core.KindRated {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) CountInteractions(ctx context.Context, userID int64, kind core.InteractionKind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, it := range m.interactions {
		if it.UserID == userID && it.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListUserIDs(ctx context.Context, limit int) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int64]struct{})
	var out []int64
	for _, it := range m.interactions {
		if _, ok := seen[it.UserID]; ok {
			continue
		}
		seen[it.UserID] = struct{}{}
		out = append(out, it.UserID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, userID int64) (*core.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	p := &core.UserProfile{UserID: userID}
	m.profiles[userID] = p
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) Save(ctx context.Context, p *core.UserProfile) error {
	if p == nil {
		return core.NewInvalidInput("profile", "nil profile")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *MemoryStore) UpdateEmbedding(ctx context.Context, userID int64, embedding []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &core.UserProfile{UserID: userID}
		m.profiles[userID] = p
	}
	p.Embedding = append([]float64(nil), embedding...)
	p.LastUpdate = time.Now()
	return nil
}

func (m *MemoryStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int64
	for id, p := range m.profiles {
		if p.LastUpdate.Before(olderThan) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func truncate[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
