package recommend

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
	"github.com/novelhub/storyrec/filter"
	"github.com/novelhub/storyrec/preference"
	"github.com/novelhub/storyrec/recall"
	"github.com/novelhub/storyrec/rerank"
)

// WeightedSource 是参与混合的召回源及其融合权重。
type WeightedSource struct {
	Source recall.Source
	Weight float64
	// Overfetch 是召回量相对最终 limit 的放大倍数，默认 1。
	// 内容/协同这类命中率不稳定的源建议设为 2。
	Overfetch int
}

// Hybrid 是混合推荐器：多路召回 + 排名加权融合。
//
// 融合算法：
//   - 每路召回按自身排序返回，第 i 位（从 0 起）贡献 (n-i) × weight 分
//   - 同一故事在多路出现时分数累加
//   - 按总分降序输出，分数相同按故事 ID 升序保证确定性
//
// 任一召回源失败只记录日志并跳过，不影响其他源。
type Hybrid struct {
	Sources []WeightedSource
	Pref    *preference.Analyzer
	Catalog core.CatalogStore

	// Filters 在融合排序后、截断前逐条过滤。
	Filters *filter.Chain

	// Rerankers 在过滤之后、截断之前依次重排。
	Rerankers []rerank.Reranker

	Logger *zap.Logger
}

func (h *Hybrid) logger() *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return zap.NewNop()
}

// Recommend 为用户生成推荐，自动排除其交互过的故事。
func (h *Hybrid) Recommend(ctx context.Context, userID int64, limit int) (*core.Recommendation, error) {
	exclude, err := h.interacted(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.RecommendWithExclusions(ctx, userID, limit, exclude)
}

// RecommendWithExclusions 在给定排除集上生成推荐，排除集完全由调用方控制。
// 离线评测需要只排除训练集时走这个入口。
func (h *Hybrid) RecommendWithExclusions(ctx context.Context, userID int64, limit int, exclude map[int64]struct{}) (*core.Recommendation, error) {
	if limit <= 0 {
		return nil, core.NewInvalidInput(core.ModuleRecommend, "recommend: limit must be positive")
	}

	scores := make(map[int64]float64)
	for _, ws := range h.Sources {
		over := ws.Overfetch
		if over <= 0 {
			over = 1
		}
		q := &recall.Query{UserID: userID, Limit: limit * over, Exclude: exclude}
		stories, err := ws.Source.Recall(ctx, q)
		if err != nil {
			// 单路失败不拖垮整体
			h.logger().Warn("recall source failed",
				zap.String("source", ws.Source.Name()),
				zap.Int64("user_id", userID),
				zap.Error(err))
			continue
		}
		n := len(stories)
		for i, s := range stories {
			if s == nil {
				continue
			}
			scores[s.ID] += float64(n-i) * ws.Weight
		}
	}

	ranked := rankByScore(scores)

	if h.Filters != nil {
		filtered, err := h.applyFilters(ctx, ranked)
		if err != nil {
			return nil, err
		}
		ranked = filtered
	}

	stories, err := h.resolve(ctx, ranked)
	if err != nil {
		return nil, err
	}
	for _, r := range h.Rerankers {
		stories, err = r.Rerank(ctx, stories)
		if err != nil {
			return nil, err
		}
	}
	if len(stories) > limit {
		stories = stories[:limit]
	}
	return &core.Recommendation{
		Stories:     stories,
		Algorithm:   core.AlgorithmHybrid,
		TotalCount:  len(stories),
		Explanation: "Personalized picks blending your genres, similar readers and what's popular",
	}, nil
}

// ContentBased 只走基于内容的召回。
func (h *Hybrid) ContentBased(ctx context.Context, userID int64, limit int) (*core.Recommendation, error) {
	return h.single(ctx, userID, limit, "recall.content", core.AlgorithmContentBased,
		"Stories matching the genres you read most")
}

// Collaborative 只走协同过滤召回。
func (h *Hybrid) Collaborative(ctx context.Context, userID int64, limit int) (*core.Recommendation, error) {
	return h.single(ctx, userID, limit, "recall.collaborative", core.AlgorithmCollaborative,
		"Loved by readers with similar taste")
}

func (h *Hybrid) single(ctx context.Context, userID int64, limit int, sourceName string, algo core.Algorithm, explanation string) (*core.Recommendation, error) {
	if limit <= 0 {
		return nil, core.NewInvalidInput(core.ModuleRecommend, "recommend: limit must be positive")
	}
	var src recall.Source
	for _, ws := range h.Sources {
		if ws.Source.Name() == sourceName {
			src = ws.Source
			break
		}
	}
	if src == nil {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeNotSupported,
			"recommend: source not configured: "+sourceName)
	}

	exclude, err := h.interacted(ctx, userID)
	if err != nil {
		return nil, err
	}
	stories, err := src.Recall(ctx, &recall.Query{UserID: userID, Limit: limit, Exclude: exclude})
	if err != nil {
		return nil, err
	}
	return &core.Recommendation{
		Stories:     stories,
		Algorithm:   algo,
		TotalCount:  len(stories),
		Explanation: explanation,
	}, nil
}

func (h *Hybrid) interacted(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	if userID == 0 || h.Pref == nil {
		return nil, nil
	}
	return h.Pref.InteractedStoryIDs(ctx, userID)
}

func (h *Hybrid) applyFilters(ctx context.Context, ids []int64) ([]int64, error) {
	stories, err := h.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	kept := make([]int64, 0, len(stories))
	for _, s := range stories {
		drop, err := h.Filters.ShouldFilter(ctx, s)
		if err != nil {
			return nil, err
		}
		if !drop {
			kept = append(kept, s.ID)
		}
	}
	return kept, nil
}

// resolve 批量回查故事详情并恢复给定的排名顺序。
func (h *Hybrid) resolve(ctx context.Context, ids []int64) ([]*core.StoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	stories, err := h.Catalog.GetStoriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*core.StoryRecord, len(stories))
	for _, s := range stories {
		if s != nil {
			byID[s.ID] = s
		}
	}
	out := make([]*core.StoryRecord, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func rankByScore(scores map[int64]float64) []int64 {
	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, scored{id: id, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	out := make([]int64, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.id)
	}
	return out
}
