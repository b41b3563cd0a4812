package recall

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
)

// CollaborativeRecall 是基于用户协同过滤的召回源。
//
// 算法流程：
//  1. 找出与目标用户评分重合度最高的若干邻居
//  2. 收集邻居的高分故事（评分 >= 4），按 rating × similarity 累加打分
//  3. 按累计分排序，批量回查故事详情后按打分顺序输出
type CollaborativeRecall struct {
	Interactions core.InteractionStore
	Catalog      core.CatalogStore

	// NeighborLimit 是参与计算的相似用户数，默认 10。
	NeighborLimit int
	// NeighborHistory 是每个邻居取多少条评分记录，默认 50。
	NeighborHistory int
	// SelfHistory 是目标用户自身取多少条评分记录参与相似度计算，默认 100。
	SelfHistory int

	Logger *zap.Logger
}

func (r *CollaborativeRecall) Name() string { return "recall.collaborative" }

func (r *CollaborativeRecall) neighborLimit() int {
	if r.NeighborLimit > 0 {
		return r.NeighborLimit
	}
	return 10
}

func (r *CollaborativeRecall) neighborHistory() int {
	if r.NeighborHistory > 0 {
		return r.NeighborHistory
	}
	return 50
}

func (r *CollaborativeRecall) selfHistory() int {
	if r.SelfHistory > 0 {
		return r.SelfHistory
	}
	return 100
}

func (r *CollaborativeRecall) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// similarUser 是一个带相似度的邻居。
type similarUser struct {
	UserID     int64
	Similarity float64
}

// SimilarUsers 返回与 userID 评分重合度最高的邻居，按相似度降序。
//
// 相似度定义为 shared / |A|：双方共同评分过的故事数除以目标用户的评分故事数。
// 分母只取目标用户一侧，偏向活跃邻居，对稀疏数据更稳健。
func (r *CollaborativeRecall) SimilarUsers(ctx context.Context, userID int64, limit int) ([]similarUser, error) {
	selfRatings, err := r.Interactions.GetInteractions(ctx, userID, core.KindRated, r.selfHistory())
	if err != nil {
		return nil, err
	}
	if len(selfRatings) == 0 {
		return nil, nil
	}

	rated := make(map[int64]struct{}, len(selfRatings))
	for _, it := range selfRatings {
		rated[it.StoryID] = struct{}{}
	}

	// 通过同一批故事的其他评分者找候选邻居
	shared := make(map[int64]int)
	for storyID := range rated {
		others, err := r.Interactions.GetStoryRatings(ctx, storyID, r.neighborHistory())
		if err != nil {
			return nil, err
		}
		for _, it := range others {
			if it.UserID == userID {
				continue
			}
			shared[it.UserID]++
		}
	}

	out := make([]similarUser, 0, len(shared))
	for uid, n := range shared {
		out = append(out, similarUser{
			UserID:     uid,
			Similarity: float64(n) / float64(len(rated)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CollaborativeRecall) Recall(ctx context.Context, q *Query) ([]*core.StoryRecord, error) {
	if q == nil || q.UserID == 0 || q.Limit <= 0 {
		return nil, nil
	}

	neighbors, err := r.SimilarUsers(ctx, q.UserID, r.neighborLimit())
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	scores := make(map[int64]float64)
	for _, nb := range neighbors {
		ratings, err := r.Interactions.GetInteractions(ctx, nb.UserID, core.KindRated, r.neighborHistory())
		if err != nil {
			r.logger().Debug("skip neighbor on fetch error",
				zap.Int64("neighbor_id", nb.UserID), zap.Error(err))
			continue
		}
		for _, it := range ratings {
			if it.Rating() < 4 {
				continue
			}
			if q.Excluded(it.StoryID) {
				continue
			}
			scores[it.StoryID] += float64(it.Rating()) * nb.Similarity
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	type scored struct {
		StoryID int64
		Score   float64
	}
	ranked := make([]scored, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, scored{StoryID: id, Score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].StoryID < ranked[j].StoryID
	})
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	ids := make([]int64, 0, len(ranked))
	for _, s := range ranked {
		ids = append(ids, s.StoryID)
	}
	stories, err := r.Catalog.GetStoriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// GetStoriesByIDs 不保序，回填成打分顺序
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
