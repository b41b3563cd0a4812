package eval

import (
	"math"
	"testing"
)

func toSet(ids ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

// 推荐 [A B C D E]（1-5），相关集 {B D F}（2 4 6）的手算结果。
func TestMetrics_WorkedExample(t *testing.T) {
	recommended := []int64{1, 2, 3, 4, 5}
	relevant := toSet(2, 4, 6)

	if p := Precision(recommended, relevant); !near(p, 0.4) {
		t.Errorf("Precision = %f, 期望 0.4", p)
	}
	if r := Recall(recommended, relevant); !near(r, 2.0/3.0) {
		t.Errorf("Recall = %f, 期望 0.667", r)
	}
	p, r := 0.4, 2.0/3.0
	if f := F1(p, r); !near(f, 2*p*r/(p+r)) {
		t.Errorf("F1 = %f, 期望 %f", f, 2*p*r/(p+r))
	}
	if m := MRR(recommended, relevant); !near(m, 0.5) {
		t.Errorf("MRR = %f, 期望 0.5", m)
	}
	// 命中位置 2 和 4：AP = (1/2 + 2/4) / min(3, 5)
	if ap := AveragePrecision(recommended, relevant, 5); !near(ap, (0.5+0.5)/3) {
		t.Errorf("AveragePrecision = %f, 期望 %f", ap, (0.5+0.5)/3)
	}
	// DCG = 1/log2(3) + 1/log2(5)，IDCG = 前 min(5, 3) 位全命中
	dcg := 1/math.Log2(3) + 1/math.Log2(5)
	idcg := 1/math.Log2(2) + 1/math.Log2(3) + 1/math.Log2(4)
	if n := NDCG(recommended, relevant, 5); !near(n, dcg/idcg) {
		t.Errorf("NDCG = %f, 期望 %f", n, dcg/idcg)
	}
}

// 相关集 {B D} 时 NDCG ≈ 0.651（IDCG 只取 2 位）。
func TestNDCG_TwoRelevant(t *testing.T) {
	recommended := []int64{1, 2, 3, 4, 5}
	relevant := toSet(2, 4)

	dcg := 1/math.Log2(3) + 1/math.Log2(5)
	idcg := 1/math.Log2(2) + 1/math.Log2(3)
	want := dcg / idcg
	if !near(want, 0.651) {
		t.Fatalf("手算基准有误: %f", want)
	}
	if n := NDCG(recommended, relevant, 5); !near(n, want) {
		t.Errorf("NDCG = %f, 期望 %f", n, want)
	}
}

// 推荐列表比 K 短时，分母仍按 K 档位算，分数不虚高。
func TestMetrics_ShortListUsesK(t *testing.T) {
	recommended := []int64{1, 2}
	relevant := toSet(1, 2, 3)

	// DCG = 1 + 1/log2(3)，IDCG = 前 min(5, 3) 位全命中
	dcg := 1/math.Log2(2) + 1/math.Log2(3)
	idcg := 1/math.Log2(2) + 1/math.Log2(3) + 1/math.Log2(4)
	if n := NDCG(recommended, relevant, 5); !near(n, dcg/idcg) {
		t.Errorf("NDCG = %f, 期望 %f", n, dcg/idcg)
	}
	if n := NDCG(recommended, relevant, 5); near(n, 1.0) {
		t.Error("两条全命中但 K=5 时 NDCG 不应为 1")
	}
	// AP = (1/1 + 2/2) / min(3, 5)
	if ap := AveragePrecision(recommended, relevant, 5); !near(ap, 2.0/3.0) {
		t.Errorf("AveragePrecision = %f, 期望 0.667", ap)
	}
	// 超过 K 的位置不参与计算
	long := []int64{9, 8, 1, 2, 3}
	if ap := AveragePrecision(long, relevant, 2); ap != 0 {
		t.Errorf("K=2 时第 3 位之后的命中不应计分，实际 %f", ap)
	}
	if n := NDCG(long, relevant, 2); n != 0 {
		t.Errorf("K=2 时第 3 位之后的命中不应计分，实际 %f", n)
	}
}

func TestMetrics_EdgeCases(t *testing.T) {
	if p := Precision(nil, toSet(1)); p != 0 {
		t.Errorf("空推荐的 Precision 应为 0，实际 %f", p)
	}
	if r := Recall([]int64{1}, nil); r != 0 {
		t.Errorf("空相关集的 Recall 应为 0，实际 %f", r)
	}
	if f := F1(0, 0); f != 0 {
		t.Errorf("P=R=0 时 F1 应为 0，实际 %f", f)
	}
	if m := MRR([]int64{1, 2}, toSet(9)); m != 0 {
		t.Errorf("无命中的 MRR 应为 0，实际 %f", m)
	}
	if n := NDCG([]int64{1, 2}, toSet(9), 2); n != 0 {
		t.Errorf("无命中的 NDCG 应为 0，实际 %f", n)
	}
	// 全命中时 NDCG 为 1
	if n := NDCG([]int64{1, 2}, toSet(1, 2), 2); !near(n, 1.0) {
		t.Errorf("完美排序的 NDCG 应为 1，实际 %f", n)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	ids := []int64{5, 3, 9, 1, 7, 2, 8, 4, 6, 10}

	train1, test1 := Split(42, ids)
	train2, test2 := Split(42, ids)

	if len(train1) != 8 || len(test1) != 2 {
		t.Fatalf("期望 8/2 切分，实际 %d/%d", len(train1), len(test1))
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatal("同一用户两次切分的训练集不一致")
		}
	}
	for i := range test1 {
		if test1[i] != test2[i] {
			t.Fatal("同一用户两次切分的测试集不一致")
		}
	}

	// 入参顺序不同，切分结果也应一致
	shuffled := []int64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	train3, _ := Split(42, shuffled)
	for i := range train1 {
		if train1[i] != train3[i] {
			t.Fatal("切分应与入参顺序无关")
		}
	}

	// 不同用户应得到不同的随机序（种子不同）
	train4, _ := Split(43, ids)
	same := true
	for i := range train1 {
		if train1[i] != train4[i] {
			same = false
			break
		}
	}
	if same {
		t.Log("用户 42 与 43 的切分偶然相同（种子不同但排列一致）")
	}
}

func TestSplit_TooFewItems(t *testing.T) {
	train, test := Split(1, []int64{7})
	if len(train) != 1 || len(test) != 0 {
		t.Errorf("单故事应全进训练集，实际 train=%v test=%v", train, test)
	}
	train, test = Split(1, nil)
	if len(train) != 0 || len(test) != 0 {
		t.Errorf("空集合应切出空结果，实际 train=%v test=%v", train, test)
	}
	// 2 个故事时至少各留 1 个
	train, test = Split(1, []int64{1, 2})
	if len(train) != 1 || len(test) != 1 {
		t.Errorf("2 个故事应切成 1/1，实际 %d/%d", len(train), len(test))
	}
}
