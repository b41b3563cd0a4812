package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/novelhub/storyrec/core"
)

// MemoryVectorIndex 是内存向量索引，余弦相似度暴力检索。
// 故事量在十万以下时足够快，更大规模应换用专门的向量库。
type MemoryVectorIndex struct {
	mu      sync.RWMutex
	vectors map[int64][]float64
}

var _ core.VectorIndex = (*MemoryVectorIndex)(nil)

func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{vectors: make(map[int64][]float64)}
}

// Upsert 写入或覆盖一条向量。空向量视为删除。
func (idx *MemoryVectorIndex) Upsert(storyID int64, embedding []float64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(embedding) == 0 {
		delete(idx.vectors, storyID)
		return
	}
	idx.vectors[storyID] = append([]float64(nil), embedding...)
}

func (idx *MemoryVectorIndex) FindNearest(ctx context.Context, embedding []float64, topK int) ([]int64, error) {
	if len(embedding) == 0 || topK <= 0 {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		s := CosineSimilarity(embedding, vec)
		if s <= 0 {
			continue
		}
		ranked = append(ranked, scored{id: id, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]int64, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.id)
	}
	return out, nil
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致或任一向量为零向量时返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
