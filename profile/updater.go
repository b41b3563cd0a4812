// Package profile 维护用户长期画像：时间衰减的语义向量与阅读行为统计。
package profile

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
	"github.com/novelhub/storyrec/preference"
)

// 画像向量的衰减率：权重 = 基础权重 × exp(-decayRate × 距今天数)。
// 0.1 意味着约一周后权重减半，70 天前的交互基本不再影响画像。
const decayRate = 0.1

// completedBoost 是完读（进度 >= 90%）阅读记录的权重加成。
const completedBoost = 1.5

// Updater 重算用户画像：交互故事向量的时间衰减加权平均 + 行为统计。
type Updater struct {
	Interactions core.InteractionStore
	Catalog      core.CatalogStore
	Profiles     core.ProfileStore

	// HistoryLimit 是参与行为统计的每类交互条数上限，默认 500。
	HistoryLimit int

	// EmbedLimit 是参与向量重算的每类交互条数上限，默认 100。
	EmbedLimit int

	// DiversityLimit 是题材多样性统计的阅读条数上限，默认 200。
	DiversityLimit int

	Logger *zap.Logger
}

func (u *Updater) logger() *zap.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return zap.NewNop()
}

func (u *Updater) historyLimit() int {
	if u.HistoryLimit > 0 {
		return u.HistoryLimit
	}
	return 500
}

func (u *Updater) embedLimit() int {
	if u.EmbedLimit > 0 {
		return u.EmbedLimit
	}
	return 100
}

func (u *Updater) diversityLimit() int {
	if u.DiversityLimit > 0 {
		return u.DiversityLimit
	}
	return 200
}

// Refresh 全量重算并保存用户画像。没有任何可用向量时保留旧向量不变。
func (u *Updater) Refresh(ctx context.Context, userID int64) (*core.UserProfile, error) {
	p, err := u.Profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	reads, err := u.Interactions.GetInteractions(ctx, userID, core.KindRead, u.historyLimit())
	if err != nil {
		return nil, err
	}
	ratings, err := u.Interactions.GetInteractions(ctx, userID, core.KindRated, u.historyLimit())
	if err != nil {
		return nil, err
	}

	// 向量重算只看最近的交互，统计仍用完整窗口（交互按最新在前返回）
	if emb, ok := u.computeEmbedding(ctx, head(reads, u.embedLimit()), head(ratings, u.embedLimit())); ok {
		p.Embedding = emb
	}
	u.computeMetrics(ctx, p, reads)

	p.LastUpdate = time.Now()
	if err := u.Profiles.Save(ctx, p); err != nil {
		return nil, err
	}

	u.logger().Debug("refreshed user profile",
		zap.Int64("user_id", userID),
		zap.Int("reads", len(reads)),
		zap.Int("ratings", len(ratings)),
		zap.Bool("has_embedding", len(p.Embedding) > 0))
	return p, nil
}

func head(recs []*core.InteractionRecord, n int) []*core.InteractionRecord {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}

// signal 是一条参与向量加权的交互信号；同一故事只保留最新一条的时间。
type signal struct {
	weight float64
	at     time.Time
}

// computeEmbedding 计算时间衰减加权平均向量。
//
//   - 阅读基础权重 1.0，完读 ×1.5
//   - 评分按档位（preference.RatingWeight）
//   - 同一故事多条信号权重累加，时间取最新
//   - 最终权重 = 累加权重 × exp(-0.1 × 距今天数)，非正者剔除
//   - 没有可用向量的故事不参与
func (u *Updater) computeEmbedding(ctx context.Context, reads, ratings []*core.InteractionRecord) ([]float64, bool) {
	signals := make(map[int64]*signal)

	add := func(storyID int64, w float64, at time.Time) {
		s, ok := signals[storyID]
		if !ok {
			signals[storyID] = &signal{weight: w, at: at}
			return
		}
		s.weight += w
		if at.After(s.at) {
			s.at = at
		}
	}

	for _, r := range reads {
		w := 1.0
		if r.Completed() {
			w *= completedBoost
		}
		add(r.StoryID, w, r.Timestamp)
	}
	for _, r := range ratings {
		add(r.StoryID, preference.RatingWeight(r.Rating()), r.Timestamp)
	}
	if len(signals) == 0 {
		return nil, false
	}

	ids := make([]int64, 0, len(signals))
	for id := range signals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	stories, err := u.Catalog.GetStoriesByIDs(ctx, ids)
	if err != nil {
		u.logger().Warn("embedding recompute skipped on catalog error", zap.Error(err))
		return nil, false
	}

	now := time.Now()
	var (
		sum         []float64
		totalWeight float64
	)
	for _, st := range stories {
		if !st.HasEmbedding() {
			continue
		}
		sig := signals[st.ID]
		days := now.Sub(sig.at).Hours() / 24
		w := sig.weight * math.Exp(-decayRate*days)
		if w <= 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(st.Embedding))
		}
		if len(st.Embedding) != len(sum) {
			// 维度不一致的向量直接跳过
			continue
		}
		for i, v := range st.Embedding {
			sum[i] += v * w
		}
		totalWeight += w
	}
	if totalWeight <= 0 || sum == nil {
		return nil, false
	}
	for i := range sum {
		sum[i] /= totalWeight
	}
	return sum, true
}

// computeMetrics 重算阅读行为统计，直接写入画像。
func (u *Updater) computeMetrics(ctx context.Context, p *core.UserProfile, reads []*core.InteractionRecord) {
	storySet := make(map[int64]struct{})
	completed := make(map[int64]struct{})
	chapters := 0
	recentChapters := 0
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	for _, r := range reads {
		storySet[r.StoryID] = struct{}{}
		if r.Completed() {
			completed[r.StoryID] = struct{}{}
		}
		if r.ChapterID != 0 {
			chapters++
			if r.Timestamp.After(cutoff) {
				recentChapters++
			}
		}
	}

	p.TotalStoriesRead = len(storySet)
	p.TotalChaptersRead = chapters
	if len(storySet) > 0 {
		p.CompletionRate = float64(len(completed)) / float64(len(storySet))
	} else {
		p.CompletionRate = 0
	}
	// 近 30 天 ≈ 4.3 周
	p.ChaptersPerWeek = float64(recentChapters) / 4.3
	p.GenreDiversity = u.genreDiversity(ctx, reads)
}

// genreDiversity 是阅读题材分布的归一化香农熵：
// 只读一个题材为 0，均匀分布在 n 个题材上为 1。
func (u *Updater) genreDiversity(ctx context.Context, reads []*core.InteractionRecord) float64 {
	limit := u.diversityLimit()
	if len(reads) > limit {
		reads = reads[:limit]
	}

	ids := make([]int64, 0, len(reads))
	seen := make(map[int64]struct{}, len(reads))
	for _, r := range reads {
		if _, ok := seen[r.StoryID]; ok {
			continue
		}
		seen[r.StoryID] = struct{}{}
		ids = append(ids, r.StoryID)
	}
	if len(ids) == 0 {
		return 0
	}

	stories, err := u.Catalog.GetStoriesByIDs(ctx, ids)
	if err != nil {
		return 0
	}

	counts := make(map[int64]int)
	total := 0
	for _, st := range stories {
		for _, g := range st.Genres {
			counts[g.ID]++
			total++
		}
	}
	if len(counts) < 2 || total == 0 {
		return 0
	}

	entropy := 0.0
	for _, n := range counts {
		pr := float64(n) / float64(total)
		entropy -= pr * math.Log2(pr)
	}
	return entropy / math.Log2(float64(len(counts)))
}
