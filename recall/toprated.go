package recall

import (
	"context"

	"github.com/novelhub/storyrec/core"
)

// TopRatedRecall 是高口碑召回源：平均分降序，且只收录评分样本充足的故事。
type TopRatedRecall struct {
	Catalog core.CatalogStore

	// MinRatings 是入选的最低评分数门槛（严格大于），默认 10。
	MinRatings int
}

func (r *TopRatedRecall) Name() string { return "recall.top_rated" }

func (r *TopRatedRecall) minRatings() int {
	if r.MinRatings > 0 {
		return r.MinRatings
	}
	return 10
}

func (r *TopRatedRecall) Recall(ctx context.Context, q *Query) ([]*core.StoryRecord, error) {
	if q == nil || q.Limit <= 0 {
		return nil, nil
	}
	stories, err := r.Catalog.GetTopRatedStories(ctx, q.Limit*2)
	if err != nil {
		return nil, err
	}
	out := make([]*core.StoryRecord, 0, q.Limit)
	for _, s := range stories {
		if s == nil || q.Excluded(s.ID) {
			continue
		}
		if s.TotalRatings <= r.minRatings() {
			continue
		}
		out = append(out, s)
		if len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
