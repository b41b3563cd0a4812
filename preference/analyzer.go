// Package preference 从用户的交互历史推导题材偏好与"已看过"排除集。
//
// 偏好分数是加权累加：阅读 1.0、收藏 3.0、评分按档位
// （>=4 星 +2.0、3 星 +0.5、<=2 星 -0.5），每条 (用户, 题材, 交互) 记一次。
package preference

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
)

// 各类信号的权重。收藏是最强信号。
const (
	weightRead     = 1.0
	weightFavorite = 3.0
)

// RatingWeight 返回某个星级评分对偏好/画像的贡献权重。
func RatingWeight(rating int) float64 {
	switch {
	case rating >= 4:
		return 2.0
	case rating == 3:
		return 0.5
	default:
		return -0.5
	}
}

// GenrePreference 是一条题材偏好：分数越高越偏好。请求期推导，不持久化。
type GenrePreference struct {
	GenreID          int64
	GenreName        string
	Score            float64
	InteractionCount int
}

// Analyzer 是偏好分析器：读取交互存储 + 目录，输出排序后的题材偏好。
type Analyzer struct {
	Interactions core.InteractionStore
	Catalog      core.CatalogStore

	// HistoryLimit 每类交互读取的最大条数，默认 100。
	HistoryLimit int

	// ExclusionLimit 构建排除集时每类交互读取的最大条数，默认 200。
	ExclusionLimit int

	Logger *zap.Logger
}

func (a *Analyzer) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

func (a *Analyzer) historyLimit() int {
	if a.HistoryLimit > 0 {
		return a.HistoryLimit
	}
	return 100
}

func (a *Analyzer) exclusionLimit() int {
	if a.ExclusionLimit > 0 {
		return a.ExclusionLimit
	}
	return 200
}

// AnalyzeGenrePreferences 分析用户的题材偏好，按分数降序返回。
// 排序是确定性的：分数降序 → 交互次数降序 → 题材 ID 升序。
func (a *Analyzer) AnalyzeGenrePreferences(ctx context.Context, userID int64) ([]GenrePreference, error) {
	limit := a.historyLimit()

	type record struct {
		storyID int64
		weight  float64
	}
	var records []record

	reads, err := a.Interactions.GetInteractions(ctx, userID, core.KindRead, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range reads {
		records = append(records, record{storyID: r.StoryID, weight: weightRead})
	}

	ratings, err := a.Interactions.GetInteractions(ctx, userID, core.KindRated, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range ratings {
		records = append(records, record{storyID: r.StoryID, weight: RatingWeight(r.Rating())})
	}

	favorites, err := a.Interactions.GetInteractions(ctx, userID, core.KindFavorited, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range favorites {
		records = append(records, record{storyID: r.StoryID, weight: weightFavorite})
	}

	if len(records) == 0 {
		return nil, nil
	}

	// 批量取故事以拿到题材标签；已删除的故事直接跳过
	seen := make(map[int64]struct{}, len(records))
	storyIDs := make([]int64, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.storyID]; ok {
			continue
		}
		seen[rec.storyID] = struct{}{}
		storyIDs = append(storyIDs, rec.storyID)
	}

	genres, err := a.storyGenres(ctx, storyIDs)
	if err != nil {
		return nil, err
	}

	type accum struct {
		name  string
		score float64
		count int
	}
	scores := make(map[int64]*accum)

	for _, rec := range records {
		for _, g := range genres[rec.storyID] {
			acc, ok := scores[g.ID]
			if !ok {
				acc = &accum{name: g.Name}
				scores[g.ID] = acc
			}
			acc.score += rec.weight
			acc.count++
		}
	}

	prefs := make([]GenrePreference, 0, len(scores))
	for id, acc := range scores {
		prefs = append(prefs, GenrePreference{
			GenreID:          id,
			GenreName:        acc.name,
			Score:            acc.score,
			InteractionCount: acc.count,
		})
	}

	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].Score != prefs[j].Score {
			return prefs[i].Score > prefs[j].Score
		}
		if prefs[i].InteractionCount != prefs[j].InteractionCount {
			return prefs[i].InteractionCount > prefs[j].InteractionCount
		}
		return prefs[i].GenreID < prefs[j].GenreID
	})

	a.logger().Debug("analyzed genre preferences",
		zap.Int64("user_id", userID),
		zap.Int("genres", len(prefs)))

	return prefs, nil
}

// InteractedStoryIDs 返回用户读过/评过/收藏过的全部故事 ID 并集。
// 所有推荐入口都用它做排除集，保证不重复推荐已看内容。
func (a *Analyzer) InteractedStoryIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	limit := a.exclusionLimit()
	ids := make(map[int64]struct{})

	for _, kind := range []core.InteractionKind{core.KindRead, core.KindRated, core.KindFavorited} {
		recs, err := a.Interactions.GetInteractions(ctx, userID, kind, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			ids[r.StoryID] = struct{}{}
		}
	}

	return ids, nil
}

// storyGenres 把交互涉及的故事批量解析为 storyID -> 题材列表。
func (a *Analyzer) storyGenres(ctx context.Context, ids []int64) (map[int64][]core.GenreTag, error) {
	stories, err := a.Catalog.GetStoriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	genres := make(map[int64][]core.GenreTag, len(stories))
	for _, s := range stories {
		if s != nil {
			genres[s.ID] = s.Genres
		}
	}
	return genres, nil
}
