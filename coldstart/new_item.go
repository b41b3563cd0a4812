package coldstart

import (
	"context"
	"sort"
	"time"

	"github.com/novelhub/storyrec/core"
)

// NewItemStrategy 给新入库的故事曝光机会：返回最近 Window 内上架的故事，
// 已具备语义向量的排在前面（能进相似检索的优先种草）。
//
// 适用条件：目录非空。这是一个内容侧策略，与用户是谁无关。
type NewItemStrategy struct {
	Catalog core.CatalogStore

	// Window 是"新故事"的时间窗，默认 14 天。
	Window time.Duration
}

var _ Strategy = (*NewItemStrategy)(nil)

func (s *NewItemStrategy) Name() string  { return "cold_start.new_item" }
func (s *NewItemStrategy) Priority() int { return 5 }

func (s *NewItemStrategy) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return 14 * 24 * time.Hour
}

func (s *NewItemStrategy) Applicable(ctx context.Context, userID int64) (bool, error) {
	n, err := s.Catalog.CountStories(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *NewItemStrategy) Recommend(ctx context.Context, userID int64, limit int) ([]*core.StoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	stories, err := s.Catalog.GetNewestStories(ctx, time.Now().Add(-s.window()), limit*2)
	if err != nil {
		return nil, err
	}
	// 有向量的排前面，组内保持最新优先的原序
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].HasEmbedding() && !stories[j].HasEmbedding()
	})
	if len(stories) > limit {
		stories = stories[:limit]
	}
	return stories, nil
}
