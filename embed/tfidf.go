// Package embed 提供轻量的文本向量化：基于 TF-IDF 的固定维度稀疏向量。
// 作为外部向量服务不可用时的本地兜底，也用于示例和离线评测。
package embed

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// VocabularySize 是向量维度：语料中文档频率最高的前 N 个词构成词表。
const VocabularySize = 500

// TFIDF 是 TF-IDF 向量化器。先用语料 Train 构建词表与 IDF，
// 之后 Embed 把任意文本映射到固定维度向量。线程安全；
// Embed 不会修改训练状态，可并发调用。
type TFIDF struct {
	mu sync.RWMutex

	// vocab 是词 -> 向量维度下标
	vocab map[string]int
	// idf 按维度下标存放各词的逆文档频率
	idf []float64
	// docs 是训练语料的文档数
	docs int
}

func NewTFIDF() *TFIDF {
	return &TFIDF{}
}

// Trained 返回是否已完成训练。
func (t *TFIDF) Trained() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vocab) > 0
}

// Dimensions 返回向量维度（词表大小，最多 VocabularySize）。
func (t *TFIDF) Dimensions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vocab)
}

// Train 用语料构建词表与 IDF，覆盖之前的训练结果。
// 词表取文档频率最高的前 VocabularySize 个词，频率相同按字典序，
// 保证同一语料训练出的词表完全一致。
func (t *TFIDF) Train(corpus []string) {
	df := make(map[string]int)
	docs := 0
	for _, doc := range corpus {
		terms := tokenize(doc)
		if len(terms) == 0 {
			continue
		}
		docs++
		seen := make(map[string]struct{}, len(terms))
		for _, term := range terms {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	type termFreq struct {
		term string
		df   int
	}
	ranked := make([]termFreq, 0, len(df))
	for term, n := range df {
		ranked = append(ranked, termFreq{term: term, df: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].df != ranked[j].df {
			return ranked[i].df > ranked[j].df
		}
		return ranked[i].term < ranked[j].term
	})
	if len(ranked) > VocabularySize {
		ranked = ranked[:VocabularySize]
	}

	vocab := make(map[string]int, len(ranked))
	idf := make([]float64, len(ranked))
	for i, tf := range ranked {
		vocab[tf.term] = i
		// +1 平滑，未登录词不会除零
		idf[i] = math.Log(float64(docs+1) / float64(tf.df+1))
	}

	t.mu.Lock()
	t.vocab = vocab
	t.idf = idf
	t.docs = docs
	t.mu.Unlock()
}

// Reset 清空训练状态。
func (t *TFIDF) Reset() {
	t.mu.Lock()
	t.vocab = nil
	t.idf = nil
	t.docs = 0
	t.mu.Unlock()
}

// Embed 把文本映射为 TF-IDF 向量并做 L2 归一化。
// 未训练或文本没有任何词表内的词时返回 nil。
func (t *TFIDF) Embed(text string) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.vocab) == 0 {
		return nil
	}

	terms := tokenize(text)
	if len(terms) == 0 {
		return nil
	}

	counts := make(map[int]int)
	for _, term := range terms {
		if idx, ok := t.vocab[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vec := make([]float64, len(t.vocab))
	var norm float64
	for idx, n := range counts {
		v := (float64(n) / float64(len(terms))) * t.idf[idx]
		vec[idx] = v
		norm += v * v
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// tokenize 小写化并按非字母数字切词，丢弃单字符词。
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
