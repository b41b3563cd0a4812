package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/novelhub/storyrec/core"
)

func TestMemoryStore_Catalog(t *testing.T) {
	mem := NewMemoryStore()
	now := time.Now()
	genre := core.GenreTag{ID: 1, Name: "fantasy"}

	mem.AddStory(&core.StoryRecord{ID: 1, Title: "A", Genres: []core.GenreTag{genre}, AverageRating: 4.5, CreatedAt: now.Add(-10 * 24 * time.Hour)})
	mem.AddStory(&core.StoryRecord{ID: 2, Title: "B", Genres: []core.GenreTag{genre}, AverageRating: 3.5, CreatedAt: now.Add(-1 * 24 * time.Hour)})

	ctx := context.Background()

	if _, err := mem.GetStoryByID(ctx, 404); !core.IsNotFound(err) {
		t.Errorf("缺失故事应返回 NOT_FOUND，实际 %v", err)
	}

	got, err := mem.GetStoriesByIDs(ctx, []int64{2, 404, 1})
	if err != nil {
		t.Fatalf("批量查询失败: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("缺失 ID 应被跳过，期望 2 条实际 %d", len(got))
	}

	byGenre, err := mem.GetStoriesByGenre(ctx, 1, 10)
	if err != nil {
		t.Fatalf("题材查询失败: %v", err)
	}
	if len(byGenre) != 2 || byGenre[0].ID != 1 {
		t.Errorf("题材内应按平均分降序，实际 %v", byGenre)
	}

	newest, err := mem.GetNewestStories(ctx, now.Add(-5*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("最新查询失败: %v", err)
	}
	if len(newest) != 1 || newest[0].ID != 2 {
		t.Errorf("时间窗外的故事不应返回，实际 %v", newest)
	}

	n, err := mem.CountStories(ctx)
	if err != nil || n != 2 {
		t.Errorf("目录总数期望 2，实际 %d (%v)", n, err)
	}
}

func TestMemoryStore_Interactions(t *testing.T) {
	mem := NewMemoryStore()
	now := time.Now()
	ctx := context.Background()

	mem.AddInteraction(&core.InteractionRecord{UserID: 1, StoryID: 10, Kind: core.KindRead, Value: 50, Timestamp: now.Add(-2 * time.Hour)})
	mem.AddInteraction(&core.InteractionRecord{UserID: 1, StoryID: 11, Kind: core.KindRead, Value: 90, Timestamp: now.Add(-1 * time.Hour)})
	mem.AddInteraction(&core.InteractionRecord{UserID: 1, StoryID: 10, Kind: core.KindRated, Value: 4, Timestamp: now})
	mem.AddInteraction(&core.InteractionRecord{UserID: 2, StoryID: 10, Kind: core.KindRated, Value: 5, Timestamp: now})

	reads, err := mem.GetInteractions(ctx, 1, core.KindRead, 10)
	if err != nil {
		t.Fatalf("交互查询失败: %v", err)
	}
	if len(reads) != 2 || reads[0].StoryID != 11 {
		t.Errorf("应最近优先返回，实际 %v", reads)
	}

	one, err := mem.GetInteractions(ctx, 1, core.KindRead, 1)
	if err != nil || len(one) != 1 {
		t.Errorf("limit 应截断结果，实际 %d 条 (%v)", len(one), err)
	}

	ratings, err := mem.GetStoryRatings(ctx, 10, 10)
	if err != nil {
		t.Fatalf("评分查询失败: %v", err)
	}
	if len(ratings) != 2 {
		t.Errorf("故事 10 应有 2 条评分，实际 %d", len(ratings))
	}

	n, err := mem.CountInteractions(ctx, 1, core.KindRead)
	if err != nil || n != 2 {
		t.Errorf("用户 1 阅读数期望 2，实际 %d (%v)", n, err)
	}

	users, err := mem.ListUserIDs(ctx, 10)
	if err != nil {
		t.Fatalf("用户枚举失败: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Errorf("用户枚举应去重且有序，实际 %v", users)
	}
}

// 阅读进度更新覆盖同一条记录，不产生重复行。
func TestMemoryStore_ProgressUpdateReplaces(t *testing.T) {
	mem := NewMemoryStore()
	now := time.Now()
	ctx := context.Background()

	mem.AddInteraction(&core.InteractionRecord{UserID: 1, StoryID: 10, ChapterID: 3, Kind: core.KindRead, Value: 40, Timestamp: now.Add(-time.Hour)})
	mem.AddInteraction(&core.InteractionRecord{UserID: 1, StoryID: 10, ChapterID: 3, Kind: core.KindRead, Value: 95, Timestamp: now})

	reads, err := mem.GetInteractions(ctx, 1, core.KindRead, 10)
	if err != nil {
		t.Fatalf("交互查询失败: %v", err)
	}
	if len(reads) != 1 {
		t.Fatalf("进度更新不应追加新行，期望 1 条实际 %d", len(reads))
	}
	if reads[0].Value != 95 || !reads[0].Timestamp.Equal(now) {
		t.Errorf("应保留最新进度与时间，实际 %+v", reads[0])
	}
	n, err := mem.CountInteractions(ctx, 1, core.KindRead)
	if err != nil || n != 1 {
		t.Errorf("计数期望 1，实际 %d (%v)", n, err)
	}

	// 不同章节是不同记录
	mem.AddInteraction(&core.InteractionRecord{UserID: 1, StoryID: 10, ChapterID: 4, Kind: core.KindRead, Value: 10, Timestamp: now})
	if n, _ := mem.CountInteractions(ctx, 1, core.KindRead); n != 2 {
		t.Errorf("不同章节应各占一行，期望 2，实际 %d", n)
	}
}

func TestMemoryStore_Profiles(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()

	p, err := mem.GetOrCreate(ctx, 7)
	if err != nil {
		t.Fatalf("惰性创建失败: %v", err)
	}
	if p.UserID != 7 || !p.LastUpdate.IsZero() {
		t.Errorf("新画像应为空白: %+v", p)
	}

	p.TotalStoriesRead = 5
	p.LastUpdate = time.Now()
	if err := mem.Save(ctx, p); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	got, err := mem.GetOrCreate(ctx, 7)
	if err != nil || got.TotalStoriesRead != 5 {
		t.Errorf("保存后读取不一致: %+v (%v)", got, err)
	}

	// 画像 8 从未更新，应被判为过期
	if _, err := mem.GetOrCreate(ctx, 8); err != nil {
		t.Fatalf("创建画像失败: %v", err)
	}
	stale, err := mem.ListStale(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("过期扫描失败: %v", err)
	}
	if len(stale) != 1 || stale[0] != 8 {
		t.Errorf("期望用户 8 过期，实际 %v", stale)
	}
}

func TestMemoryStore_CopiesAreIsolated(t *testing.T) {
	mem := NewMemoryStore()
	mem.AddStory(&core.StoryRecord{ID: 1, Title: "A"})

	got, err := mem.GetStoryByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	got.Title = "mutated"

	again, err := mem.GetStoryByID(context.Background(), 1)
	if err != nil || again.Title != "A" {
		t.Errorf("返回值应是副本，存储不应被调用方修改: %+v", again)
	}
}

func TestMemoryVectorIndex_FindNearest(t *testing.T) {
	idx := NewMemoryVectorIndex()
	idx.Upsert(1, []float64{1, 0})
	idx.Upsert(2, []float64{0.9, 0.1})
	idx.Upsert(3, []float64{0, 1})
	idx.Upsert(4, []float64{-1, 0}) // 负相关，不应返回

	got, err := idx.FindNearest(context.Background(), []float64{1, 0}, 10)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("期望 [1 2]，实际 %v", got)
	}

	top1, err := idx.FindNearest(context.Background(), []float64{1, 0}, 1)
	if err != nil || len(top1) != 1 || top1[0] != 1 {
		t.Errorf("topK 应截断，实际 %v (%v)", top1, err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"同向", []float64{1, 0}, []float64{2, 0}, 1},
		{"正交", []float64{1, 0}, []float64{0, 1}, 0},
		{"反向", []float64{1, 0}, []float64{-1, 0}, -1},
		{"维度不一致", []float64{1, 0}, []float64{1}, 0},
		{"零向量", []float64{0, 0}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %f, 期望 %f", got, tt.want)
			}
		})
	}
}
