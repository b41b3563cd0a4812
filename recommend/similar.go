package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
	"github.com/novelhub/storyrec/preference"
)

// Similar 是相似故事推荐器，三级降级：
//  1. 源故事有向量时走向量近邻检索（语义相似）
//  2. 数量不足时用同题材故事补齐
//  3. 前两级都没有结果时才退到近期热门
type Similar struct {
	Catalog core.CatalogStore
	Vector  core.VectorIndex
	Pref    *preference.Analyzer

	// TrendingWindow 是热门兜底的时间窗，默认 30 天。
	TrendingWindow time.Duration

	Logger *zap.Logger
}

func (s *Similar) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *Similar) window() time.Duration {
	if s.TrendingWindow > 0 {
		return s.TrendingWindow
	}
	return 30 * 24 * time.Hour
}

// SimilarTo 推荐与 storyID 相似的故事。userID 为 0 表示匿名，
// 非零时额外排除该用户交互过的故事。
func (s *Similar) SimilarTo(ctx context.Context, storyID, userID int64, limit int) (*core.Recommendation, error) {
	if limit <= 0 {
		return nil, core.NewInvalidInput(core.ModuleRecommend, "recommend: limit must be positive")
	}
	source, err := s.Catalog.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, err
	}

	exclude := map[int64]struct{}{storyID: {}}
	if userID != 0 && s.Pref != nil {
		interacted, err := s.Pref.InteractedStoryIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		for id := range interacted {
			exclude[id] = struct{}{}
		}
	}

	var (
		out  []*core.StoryRecord
		algo = core.AlgorithmSemantic
	)

	if source.HasEmbedding() && s.Vector != nil {
		out, err = s.byEmbedding(ctx, source, exclude, limit)
		if err != nil {
			// 向量层故障时继续走题材降级
			s.logger().Warn("vector search failed, falling back to genre",
				zap.Int64("story_id", storyID), zap.Error(err))
			out = nil
		}
	}

	if len(out) == 0 {
		algo = core.AlgorithmContentBased
	}
	if len(out) < limit {
		more, err := s.byGenre(ctx, source, exclude, out, limit-len(out))
		if err != nil {
			// 题材层故障时继续走热门兜底
			s.logger().Warn("genre lookup failed, falling back to trending",
				zap.Int64("story_id", storyID), zap.Error(err))
		} else {
			out = append(out, more...)
		}
	}

	if len(out) == 0 {
		algo = core.AlgorithmTrending
		out, err = s.byTrending(ctx, exclude, limit)
		if err != nil {
			return nil, err
		}
	}

	return &core.Recommendation{
		Stories:     out,
		Algorithm:   algo,
		TotalCount:  len(out),
		Explanation: "Because you're looking at \"" + source.Title + "\"",
	}, nil
}

func (s *Similar) byEmbedding(ctx context.Context, source *core.StoryRecord, exclude map[int64]struct{}, limit int) ([]*core.StoryRecord, error) {
	// 多取一倍吸收排除集
	ids, err := s.Vector.FindNearest(ctx, source.Embedding, limit*2)
	if err != nil {
		return nil, err
	}
	kept := make([]int64, 0, limit)
	for _, id := range ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		kept = append(kept, id)
		if len(kept) >= limit {
			break
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	stories, err := s.Catalog.GetStoriesByIDs(ctx, kept)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*core.StoryRecord, len(stories))
	for _, st := range stories {
		if st != nil {
			byID[st.ID] = st
		}
	}
	out := make([]*core.StoryRecord, 0, len(kept))
	for _, id := range kept {
		if st, ok := byID[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Similar) byGenre(ctx context.Context, source *core.StoryRecord, exclude map[int64]struct{}, have []*core.StoryRecord, needed int) ([]*core.StoryRecord, error) {
	genre, ok := source.PrimaryGenre()
	if !ok {
		return nil, nil
	}
	seen := make(map[int64]struct{}, len(have))
	for _, st := range have {
		seen[st.ID] = struct{}{}
	}
	stories, err := s.Catalog.GetStoriesByGenre(ctx, genre.ID, needed*2)
	if err != nil {
		return nil, err
	}
	out := make([]*core.StoryRecord, 0, needed)
	for _, st := range stories {
		if st == nil {
			continue
		}
		if _, skip := exclude[st.ID]; skip {
			continue
		}
		if _, dup := seen[st.ID]; dup {
			continue
		}
		out = append(out, st)
		if len(out) >= needed {
			break
		}
	}
	return out, nil
}

func (s *Similar) byTrending(ctx context.Context, exclude map[int64]struct{}, needed int) ([]*core.StoryRecord, error) {
	stories, err := s.Catalog.GetTrendingStories(ctx, time.Now().Add(-s.window()), needed*2)
	if err != nil {
		return nil, err
	}
	out := make([]*core.StoryRecord, 0, needed)
	for _, st := range stories {
		if st == nil {
			continue
		}
		if _, skip := exclude[st.ID]; skip {
			continue
		}
		out = append(out, st)
		if len(out) >= needed {
			break
		}
	}
	return out, nil
}
