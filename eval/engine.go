package eval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novelhub/storyrec/core"
)

// Recommender 是评测引擎对推荐链路的最小依赖：
// 在指定排除集上生成推荐（评测时只排除训练集）。
type Recommender interface {
	RecommendWithExclusions(ctx context.Context, userID int64, limit int, exclude map[int64]struct{}) (*core.Recommendation, error)
}

// UserMetrics 是单用户一次评测的结果。
// Scorable 为 false 表示该用户数据不足（测试集为空），不参与聚合。
type UserMetrics struct {
	UserID   int64
	Scorable bool

	Precision        float64
	Recall           float64
	F1               float64
	AveragePrecision float64
	NDCG             float64
	MRR              float64

	Recommended   []int64
	RelevantCount int
}

// Report 是一轮系统评测（固定 K）的聚合结果，均值只取可评分用户。
type Report struct {
	K             int
	UsersTotal    int
	UsersScorable int

	Precision float64
	Recall    float64
	F1        float64
	MAP       float64
	NDCG      float64
	MRR       float64

	// Coverage 是被推荐到的不同故事数占目录总量的比例。
	Coverage float64
	// Diversity 是推荐列表内不同题材数 / 列表长度的用户均值。
	Diversity float64
}

// Engine 是离线评测引擎。
//
// 相关性定义：评分 >= 4 星或被收藏的故事视为用户真正喜欢。
// 流程：取用户的相关故事集 → 确定性 80/20 切分 → 只排除训练集生成推荐
// → 用测试集作为标准答案计算指标。
type Engine struct {
	Interactions core.InteractionStore
	Catalog      core.CatalogStore
	Recommender  Recommender

	// RelevantLimit 是每类交互参与相关集构建的条数上限，默认 200。
	RelevantLimit int

	// Concurrency 是系统评测的并发用户数，默认 8。
	Concurrency int

	Logger *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e *Engine) relevantLimit() int {
	if e.RelevantLimit > 0 {
		return e.RelevantLimit
	}
	return 200
}

func (e *Engine) concurrency() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return 8
}

// relevantStories 取用户真正喜欢的故事集合：高分评分 + 收藏。
func (e *Engine) relevantStories(ctx context.Context, userID int64) ([]int64, error) {
	limit := e.relevantLimit()
	set := make(map[int64]struct{})

	ratings, err := e.Interactions.GetInteractions(ctx, userID, core.KindRated, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range ratings {
		if r.Rating() >= 4 {
			set[r.StoryID] = struct{}{}
		}
	}

	favorites, err := e.Interactions.GetInteractions(ctx, userID, core.KindFavorited, limit)
	if err != nil {
		return nil, err
	}
	for _, f := range favorites {
		set[f.StoryID] = struct{}{}
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

// EvaluateUser 评测单个用户在 K 下的推荐质量。
func (e *Engine) EvaluateUser(ctx context.Context, userID int64, k int) (*UserMetrics, error) {
	if k <= 0 {
		return nil, core.NewInvalidInput(core.ModuleEval, "eval: k must be positive")
	}

	liked, err := e.relevantStories(ctx, userID)
	if err != nil {
		return nil, err
	}

	train, test := Split(userID, liked)
	if len(test) == 0 {
		return &UserMetrics{UserID: userID}, nil
	}

	exclude := make(map[int64]struct{}, len(train))
	for _, id := range train {
		exclude[id] = struct{}{}
	}

	rec, err := e.Recommender.RecommendWithExclusions(ctx, userID, k, exclude)
	if err != nil {
		return nil, err
	}
	recommended := rec.StoryIDs()

	relevant := make(map[int64]struct{}, len(test))
	for _, id := range test {
		relevant[id] = struct{}{}
	}

	precision := Precision(recommended, relevant)
	recall := Recall(recommended, relevant)
	return &UserMetrics{
		UserID:           userID,
		Scorable:         true,
		Precision:        precision,
		Recall:           recall,
		F1:               F1(precision, recall),
		AveragePrecision: AveragePrecision(recommended, relevant, k),
		NDCG:             NDCG(recommended, relevant, k),
		MRR:              MRR(recommended, relevant),
		Recommended:      recommended,
		RelevantCount:    len(relevant),
	}, nil
}

// EvaluateSystem 在最多 maxUsers 个用户上跑系统评测并聚合。
// 单个用户失败只记录日志并跳过。
func (e *Engine) EvaluateSystem(ctx context.Context, k, maxUsers int) (*Report, error) {
	userIDs, err := e.Interactions.ListUserIDs(ctx, maxUsers)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []*UserMetrics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			m, err := e.EvaluateUser(gctx, userID, k)
			if err != nil {
				e.logger().Warn("user evaluation failed",
					zap.Int64("user_id", userID), zap.Error(err))
				return nil
			}
			mu.Lock()
			results = append(results, m)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.aggregate(ctx, k, len(userIDs), results)
}

func (e *Engine) aggregate(ctx context.Context, k, total int, results []*UserMetrics) (*Report, error) {
	report := &Report{K: k, UsersTotal: total}

	seenStories := make(map[int64]struct{})
	diversitySum := 0.0
	diversityUsers := 0

	for _, m := range results {
		if !m.Scorable {
			continue
		}
		report.UsersScorable++
		report.Precision += m.Precision
		report.Recall += m.Recall
		report.F1 += m.F1
		report.MAP += m.AveragePrecision
		report.NDCG += m.NDCG
		report.MRR += m.MRR

		for _, id := range m.Recommended {
			seenStories[id] = struct{}{}
		}
		if d, ok := e.listDiversity(ctx, m.Recommended); ok {
			diversitySum += d
			diversityUsers++
		}
	}

	if report.UsersScorable > 0 {
		n := float64(report.UsersScorable)
		report.Precision /= n
		report.Recall /= n
		report.F1 /= n
		report.MAP /= n
		report.NDCG /= n
		report.MRR /= n
	}
	if diversityUsers > 0 {
		report.Diversity = diversitySum / float64(diversityUsers)
	}

	catalogSize, err := e.Catalog.CountStories(ctx)
	if err != nil {
		return nil, err
	}
	if catalogSize > 0 {
		report.Coverage = float64(len(seenStories)) / float64(catalogSize)
	}
	return report, nil
}

// listDiversity 是单个推荐列表的题材多样性：不同题材名数 / 列表长度。
func (e *Engine) listDiversity(ctx context.Context, recommended []int64) (float64, bool) {
	if len(recommended) == 0 {
		return 0, false
	}
	stories, err := e.Catalog.GetStoriesByIDs(ctx, recommended)
	if err != nil {
		return 0, false
	}
	genres := make(map[string]struct{})
	for _, s := range stories {
		for _, g := range s.Genres {
			genres[g.Name] = struct{}{}
		}
	}
	return float64(len(genres)) / float64(len(recommended)), true
}

// 全量评测使用的 K 档位。
var fullEvaluationKs = []int{5, 10, 20, 50}

// RunFullEvaluation 在多个 K 档位上跑完整评测。
func (e *Engine) RunFullEvaluation(ctx context.Context, maxUsers int) ([]*Report, error) {
	reports := make([]*Report, 0, len(fullEvaluationKs))
	for _, k := range fullEvaluationKs {
		r, err := e.EvaluateSystem(ctx, k, maxUsers)
		if err != nil {
			return nil, err
		}
		e.logger().Info("evaluation round completed",
			zap.Int("k", k),
			zap.Int("users_scorable", r.UsersScorable),
			zap.Float64("precision", r.Precision),
			zap.Float64("ndcg", r.NDCG))
		reports = append(reports, r)
	}
	return reports, nil
}

// Summary 渲染人类可读的评测摘要。
func Summary(reports []*Report) string {
	var b strings.Builder
	b.WriteString("K     Prec    Recall  F1      MAP     NDCG    MRR     Cover   Divers\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "%-5d %-7.4f %-7.4f %-7.4f %-7.4f %-7.4f %-7.4f %-7.4f %-7.4f\n",
			r.K, r.Precision, r.Recall, r.F1, r.MAP, r.NDCG, r.MRR, r.Coverage, r.Diversity)
	}
	return b.String()
}
