package core

import "time"

// GenreTag 是故事携带的题材标签。
type GenreTag struct {
	ID   int64
	Name string
}

// StoryRecord 是推荐链路中的统一故事承载结构：题材、向量、评分统计。
// 目录（Catalog）是外部协作方，核心只读取这些字段，不负责持久化。
type StoryRecord struct {
	ID     int64
	Title  string
	Genres []GenreTag

	// Embedding 是外部向量服务生成的语义向量；可能为空（尚未生成）。
	Embedding []float64

	CreatedAt     time.Time
	TotalRatings  int
	AverageRating float64
}

// HasEmbedding 判断故事是否已具备语义向量。
func (s *StoryRecord) HasEmbedding() bool {
	return s != nil && len(s.Embedding) > 0
}

// PrimaryGenre 返回故事的第一个题材标签；没有题材时返回 false。
func (s *StoryRecord) PrimaryGenre() (GenreTag, bool) {
	if s == nil || len(s.Genres) == 0 {
		return GenreTag{}, false
	}
	return s.Genres[0], true
}

// GenreIDs 返回故事的全部题材 ID。
func (s *StoryRecord) GenreIDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.Genres))
	for _, g := range s.Genres {
		ids = append(ids, g.ID)
	}
	return ids
}
