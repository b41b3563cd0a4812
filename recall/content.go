package recall

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
	"github.com/novelhub/storyrec/preference"
)

// ContentRecall 是基于内容的召回源：按用户的题材偏好逐档取故事。
//
// 算法流程：
//  1. 分析用户题材偏好（preference.Analyzer）
//  2. 从最偏好的题材开始取故事，排除已看过的，直到凑满 limit
//  3. 用户没有任何偏好时退化为近期热门（冷内容兜底）
type ContentRecall struct {
	Pref    *preference.Analyzer
	Catalog core.CatalogStore

	// TrendingWindow 是无偏好兜底时的热门时间窗，默认 30 天。
	TrendingWindow time.Duration

	Logger *zap.Logger
}

func (r *ContentRecall) Name() string { return "recall.content" }

func (r *ContentRecall) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func (r *ContentRecall) window() time.Duration {
	if r.TrendingWindow > 0 {
		return r.TrendingWindow
	}
	return 30 * 24 * time.Hour
}

func (r *ContentRecall) Recall(ctx context.Context, q *Query) ([]*core.StoryRecord, error) {
	if q == nil || q.UserID == 0 || q.Limit <= 0 {
		return nil, nil
	}

	prefs, err := r.Pref.AnalyzeGenrePreferences(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	if len(prefs) == 0 {
		// 无偏好可用：退化为热门
		r.logger().Debug("no genre preferences, falling back to trending",
			zap.Int64("user_id", q.UserID))
		trending, err := r.Catalog.GetTrendingStories(ctx, time.Now().Add(-r.window()), q.Limit)
		if err != nil {
			return nil, err
		}
		return filterExcluded(trending, q, q.Limit), nil
	}

	out := make([]*core.StoryRecord, 0, q.Limit)
	collected := make(map[int64]struct{}, q.Limit)

	for _, pref := range prefs {
		if len(out) >= q.Limit {
			break
		}
		needed := q.Limit - len(out)

		// 多取一倍以吸收排除集
		stories, err := r.Catalog.GetStoriesByGenre(ctx, pref.GenreID, needed*2)
		if err != nil {
			return nil, err
		}

		for _, s := range stories {
			if s == nil || q.Excluded(s.ID) {
				continue
			}
			if _, ok := collected[s.ID]; ok {
				continue
			}
			collected[s.ID] = struct{}{}
			out = append(out, s)
			if len(out) >= q.Limit {
				break
			}
		}
	}

	return out, nil
}

// filterExcluded 过滤排除集并截断到 limit，保持原有排序。
func filterExcluded(stories []*core.StoryRecord, q *Query, limit int) []*core.StoryRecord {
	out := make([]*core.StoryRecord, 0, len(stories))
	for _, s := range stories {
		if s == nil || q.Excluded(s.ID) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
