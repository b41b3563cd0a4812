package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novelhub/storyrec/core"
	"github.com/novelhub/storyrec/filter"
	"github.com/novelhub/storyrec/preference"
	"github.com/novelhub/storyrec/recall"
	"github.com/novelhub/storyrec/store"
)

// fixedSource 是返回固定列表的召回源（已按最优在前排序）。
type fixedSource struct {
	name    string
	stories []*core.StoryRecord
	err     error
}

func (s *fixedSource) Name() string { return s.name }

func (s *fixedSource) Recall(ctx context.Context, q *recall.Query) ([]*core.StoryRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.StoryRecord, 0, len(s.stories))
	for _, st := range s.stories {
		if q.Excluded(st.ID) {
			continue
		}
		out = append(out, st)
		if len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func story(id int64, rating float64) *core.StoryRecord {
	return &core.StoryRecord{ID: id, AverageRating: rating, TotalRatings: 20, CreatedAt: time.Now().Add(-30 * 24 * time.Hour)}
}

func catalogWith(stories ...*core.StoryRecord) *store.MemoryStore {
	mem := store.NewMemoryStore()
	for _, s := range stories {
		mem.AddStory(s)
	}
	return mem
}

func TestHybrid_RankFusion(t *testing.T) {
	s1, s2, s3 := story(1, 4.0), story(2, 4.0), story(3, 4.0)
	mem := catalogWith(s1, s2, s3)

	h := &Hybrid{
		Catalog: mem,
		Sources: []WeightedSource{
			// 源 A（权重 0.6）：[1 2]，源 B（权重 0.4）：[2 3]
			{Source: &fixedSource{name: "a", stories: []*core.StoryRecord{s1, s2}}, Weight: 0.6},
			{Source: &fixedSource{name: "b", stories: []*core.StoryRecord{s2, s3}}, Weight: 0.4},
		},
	}

	rec, err := h.RecommendWithExclusions(context.Background(), 0, 3, nil)
	if err != nil {
		t.Fatalf("推荐失败: %v", err)
	}
	// 分数：1 → 2×0.6=1.2；2 → 1×0.6+2×0.4=1.4；3 → 1×0.4=0.4
	want := []int64{2, 1, 3}
	got := rec.StoryIDs()
	if len(got) != len(want) {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("期望排序 %v，实际 %v", want, got)
		}
	}
	if rec.Algorithm != core.AlgorithmHybrid {
		t.Errorf("期望算法标记 hybrid，实际 %s", rec.Algorithm)
	}
}

func TestHybrid_Deterministic(t *testing.T) {
	s1, s2 := story(1, 4.0), story(2, 4.0)
	mem := catalogWith(s1, s2)
	h := &Hybrid{
		Catalog: mem,
		Sources: []WeightedSource{
			// 两个故事分数相同，应按 ID 升序稳定输出
			{Source: &fixedSource{name: "a", stories: []*core.StoryRecord{s2}}, Weight: 0.5},
			{Source: &fixedSource{name: "b", stories: []*core.StoryRecord{s1}}, Weight: 0.5},
		},
	}
	for i := 0; i < 5; i++ {
		rec, err := h.RecommendWithExclusions(context.Background(), 0, 2, nil)
		if err != nil {
			t.Fatalf("推荐失败: %v", err)
		}
		ids := rec.StoryIDs()
		if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
			t.Fatalf("同分应按 ID 升序，实际 %v", ids)
		}
	}
}

func TestHybrid_SourceFailureTolerated(t *testing.T) {
	s1 := story(1, 4.0)
	mem := catalogWith(s1)
	h := &Hybrid{
		Catalog: mem,
		Sources: []WeightedSource{
			{Source: &fixedSource{name: "broken", err: errors.New("backend down")}, Weight: 0.6},
			{Source: &fixedSource{name: "ok", stories: []*core.StoryRecord{s1}}, Weight: 0.4},
		},
	}
	rec, err := h.RecommendWithExclusions(context.Background(), 0, 5, nil)
	if err != nil {
		t.Fatalf("单路失败不应拖垮整体: %v", err)
	}
	if len(rec.Stories) != 1 || rec.Stories[0].ID != 1 {
		t.Errorf("期望存活源的结果 [1]，实际 %v", rec.StoryIDs())
	}
}

func TestHybrid_ExcludesInteracted(t *testing.T) {
	now := time.Now()
	s1, s2 := story(1, 4.0), story(2, 4.0)
	mem := catalogWith(s1, s2)
	mem.AddInteraction(&core.InteractionRecord{UserID: 9, StoryID: 1, Kind: core.KindRead, Value: 100, Timestamp: now})

	h := &Hybrid{
		Catalog: mem,
		Pref:    &preference.Analyzer{Interactions: mem, Catalog: mem},
		Sources: []WeightedSource{
			{Source: &fixedSource{name: "a", stories: []*core.StoryRecord{s1, s2}}, Weight: 1.0},
		},
	}
	rec, err := h.Recommend(context.Background(), 9, 5)
	if err != nil {
		t.Fatalf("推荐失败: %v", err)
	}
	for _, id := range rec.StoryIDs() {
		if id == 1 {
			t.Error("用户读过的故事 1 不应被推荐")
		}
	}
}

func TestHybrid_FilterChainApplied(t *testing.T) {
	s1, s2 := story(1, 1.5), story(2, 4.5)
	mem := catalogWith(s1, s2)
	low, err := filter.NewRuleFilter(`story.average_rating < 2.0`)
	if err != nil {
		t.Fatalf("编译过滤规则失败: %v", err)
	}
	h := &Hybrid{
		Catalog: mem,
		Filters: filter.NewChain(low),
		Sources: []WeightedSource{
			{Source: &fixedSource{name: "a", stories: []*core.StoryRecord{s1, s2}}, Weight: 1.0},
		},
	}
	rec, err := h.RecommendWithExclusions(context.Background(), 0, 5, nil)
	if err != nil {
		t.Fatalf("推荐失败: %v", err)
	}
	ids := rec.StoryIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("低分故事应被过滤，期望 [2]，实际 %v", ids)
	}
}

func TestHybrid_InvalidLimit(t *testing.T) {
	h := &Hybrid{Catalog: store.NewMemoryStore()}
	if _, err := h.RecommendWithExclusions(context.Background(), 0, 0, nil); !core.IsInvalidInput(err) {
		t.Errorf("limit=0 应返回 INVALID_INPUT，实际 %v", err)
	}
}

func TestSimilar_EmbeddingPath(t *testing.T) {
	genre := core.GenreTag{ID: 1, Name: "fantasy"}
	src := &core.StoryRecord{ID: 1, Title: "Origin", Genres: []core.GenreTag{genre}, Embedding: []float64{1, 0}}
	near := &core.StoryRecord{ID: 2, Title: "Near", Genres: []core.GenreTag{genre}, Embedding: []float64{0.9, 0.1}}
	far := &core.StoryRecord{ID: 3, Title: "Far", Genres: []core.GenreTag{genre}, Embedding: []float64{0, 1}}
	mem := catalogWith(src, near, far)

	idx := store.NewMemoryVectorIndex()
	for _, s := range []*core.StoryRecord{src, near, far} {
		idx.Upsert(s.ID, s.Embedding)
	}

	sim := &Similar{Catalog: mem, Vector: idx}
	rec, err := sim.SimilarTo(context.Background(), 1, 0, 2)
	if err != nil {
		t.Fatalf("相似推荐失败: %v", err)
	}
	ids := rec.StoryIDs()
	if len(ids) == 0 || ids[0] != 2 {
		t.Errorf("最相似的故事 2 应在首位，实际 %v", ids)
	}
	for _, id := range ids {
		if id == 1 {
			t.Error("源故事不应出现在相似结果里")
		}
	}
	if rec.Algorithm != core.AlgorithmSemantic {
		t.Errorf("走向量通道时算法标记应为 semantic，实际 %s", rec.Algorithm)
	}
}

func TestSimilar_GenreFallback(t *testing.T) {
	genre := core.GenreTag{ID: 1, Name: "fantasy"}
	src := &core.StoryRecord{ID: 1, Title: "Origin", Genres: []core.GenreTag{genre}} // 无向量
	peer := &core.StoryRecord{ID: 2, Title: "Peer", Genres: []core.GenreTag{genre}, AverageRating: 4.0}
	mem := catalogWith(src, peer)

	sim := &Similar{Catalog: mem, Vector: store.NewMemoryVectorIndex()}
	rec, err := sim.SimilarTo(context.Background(), 1, 0, 3)
	if err != nil {
		t.Fatalf("相似推荐失败: %v", err)
	}
	ids := rec.StoryIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("期望题材降级返回 [2]，实际 %v", ids)
	}
	if rec.Algorithm != core.AlgorithmContentBased {
		t.Errorf("题材降级的算法标记应为 content_based，实际 %s", rec.Algorithm)
	}
}

// 向量层结果不足 limit 时，先用同题材补齐，而不是直接跳到热门。
func TestSimilar_GenreTopsUpShortEmbeddingResult(t *testing.T) {
	now := time.Now()
	genre := core.GenreTag{ID: 1, Name: "fantasy"}
	other := core.GenreTag{ID: 2, Name: "scifi"}
	src := &core.StoryRecord{ID: 1, Title: "Origin", Genres: []core.GenreTag{genre}, Embedding: []float64{1, 0}}
	near := &core.StoryRecord{ID: 2, Title: "Near", Genres: []core.GenreTag{genre}, Embedding: []float64{0.9, 0.1}}
	mateA := &core.StoryRecord{ID: 3, Title: "MateA", Genres: []core.GenreTag{genre}, AverageRating: 4.5}
	mateB := &core.StoryRecord{ID: 4, Title: "MateB", Genres: []core.GenreTag{genre}, AverageRating: 4.0}
	hot := &core.StoryRecord{ID: 9, Title: "Hot", Genres: []core.GenreTag{other}}
	mem := catalogWith(src, near, mateA, mateB, hot)
	// 热门故事有近期交互，若错误地走了热门兜底就会混进来
	mem.AddInteraction(&core.InteractionRecord{UserID: 7, StoryID: 9, Kind: core.KindRead, Value: 10, Timestamp: now})

	idx := store.NewMemoryVectorIndex()
	idx.Upsert(src.ID, src.Embedding)
	idx.Upsert(near.ID, near.Embedding)

	sim := &Similar{Catalog: mem, Vector: idx}
	rec, err := sim.SimilarTo(context.Background(), 1, 0, 3)
	if err != nil {
		t.Fatalf("相似推荐失败: %v", err)
	}
	want := []int64{2, 3, 4}
	got := rec.StoryIDs()
	if len(got) != len(want) {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("期望 %v（向量近邻 + 同题材补齐），实际 %v", want, got)
		}
	}
	for _, id := range got {
		if id == 9 {
			t.Error("前两级已有结果，热门故事 9 不应混入")
		}
	}
	if rec.Algorithm != core.AlgorithmSemantic {
		t.Errorf("向量层有结果时算法标记应为 semantic，实际 %s", rec.Algorithm)
	}
}

// 向量与题材两级都空时才退到热门。
func TestSimilar_TrendingOnlyWhenEmpty(t *testing.T) {
	now := time.Now()
	other := core.GenreTag{ID: 2, Name: "scifi"}
	src := &core.StoryRecord{ID: 1, Title: "Origin"} // 无向量也无题材
	hot := &core.StoryRecord{ID: 9, Title: "Hot", Genres: []core.GenreTag{other}}
	mem := catalogWith(src, hot)
	mem.AddInteraction(&core.InteractionRecord{UserID: 7, StoryID: 9, Kind: core.KindRead, Value: 10, Timestamp: now})

	sim := &Similar{Catalog: mem, Vector: store.NewMemoryVectorIndex()}
	rec, err := sim.SimilarTo(context.Background(), 1, 0, 3)
	if err != nil {
		t.Fatalf("相似推荐失败: %v", err)
	}
	ids := rec.StoryIDs()
	if len(ids) != 1 || ids[0] != 9 {
		t.Errorf("期望热门兜底返回 [9]，实际 %v", ids)
	}
	if rec.Algorithm != core.AlgorithmTrending {
		t.Errorf("热门兜底的算法标记应为 trending，实际 %s", rec.Algorithm)
	}
}

func TestSimilar_UnknownStory(t *testing.T) {
	sim := &Similar{Catalog: store.NewMemoryStore()}
	if _, err := sim.SimilarTo(context.Background(), 404, 0, 3); !core.IsNotFound(err) {
		t.Errorf("未知故事应返回 NOT_FOUND，实际 %v", err)
	}
}
