package index

import (
	"math"
	"testing"

	"github.com/stylekit/stylekit/core"
)

func mustAdd(t *testing.T, idx *VisualIndex, id string, vec []float64, cat core.Category) {
	t.Helper()
	if err := idx.Add(id, vec, cat); err != nil {
		t.Fatalf("Add(%s) 失败: %v", id, err)
	}
}

// TestQuerySelfSimilarity 自相似：入库向量查自己，相似度 ≈ 1.0
func TestQuerySelfSimilarity(t *testing.T) {
	idx := New(3, "test-v1")
	vec := []float64{3, 4, 0} // 非单位向量，验证归一化
	mustAdd(t, idx, "a", vec, core.CategoryTop)

	results, err := idx.Query(vec, 1, core.CategoryAny)
	if err != nil {
		t.Fatalf("Query 失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("期望命中 a，实际 %+v", results)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-5 {
		t.Errorf("自相似度应 ≈ 1.0，实际 %v", results[0].Similarity)
	}
}

// TestQueryOrdering 三向量场景：A 同向、B 斜向、C 反向
func TestQueryOrdering(t *testing.T) {
	idx := New(2, "test-v1", WithMinSimilarity(0))
	mustAdd(t, idx, "A", []float64{1, 0}, core.CategoryTop)
	mustAdd(t, idx, "B", []float64{0.9, 0.44}, core.CategoryTop)
	mustAdd(t, idx, "C", []float64{-1, 0}, core.CategoryTop)

	results, err := idx.Query([]float64{1, 0}, 3, core.CategoryAny)
	if err != nil {
		t.Fatalf("Query 失败: %v", err)
	}
	// C 与查询反向（相似度 -1），被下界 0 过滤
	if len(results) != 2 {
		t.Fatalf("期望 2 条结果（C 被过滤），实际 %d: %+v", len(results), results)
	}
	if results[0].ID != "A" || results[1].ID != "B" {
		t.Errorf("期望顺序 A, B，实际 %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Errorf("A 的相似度应高于 B：%v <= %v", results[0].Similarity, results[1].Similarity)
	}
}

// TestQueryDeterministicTies 同分按 ID 升序
func TestQueryDeterministicTies(t *testing.T) {
	idx := New(2, "test-v1")
	same := []float64{1, 0}
	mustAdd(t, idx, "z", same, core.CategoryTop)
	mustAdd(t, idx, "a", same, core.CategoryTop)
	mustAdd(t, idx, "m", same, core.CategoryTop)

	for i := 0; i < 5; i++ {
		results, err := idx.Query(same, 3, core.CategoryAny)
		if err != nil {
			t.Fatalf("Query 失败: %v", err)
		}
		got := []string{results[0].ID, results[1].ID, results[2].ID}
		want := []string{"a", "m", "z"}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("第 %d 次查询顺序不确定：got %v, want %v", i, got, want)
			}
		}
	}
}

// TestQueryCategoryFilter 类目硬过滤
func TestQueryCategoryFilter(t *testing.T) {
	idx := New(2, "test-v1")
	mustAdd(t, idx, "top-1", []float64{1, 0}, core.CategoryTop)
	mustAdd(t, idx, "shoe-1", []float64{1, 0.01}, core.CategoryShoes)

	results, err := idx.Query([]float64{1, 0}, 10, core.CategoryShoes)
	if err != nil {
		t.Fatalf("Query 失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != "shoe-1" {
		t.Errorf("类目过滤失效：%+v", results)
	}
}

// TestAddReplace 重复插入替换旧向量并递增插入版本
func TestAddReplace(t *testing.T) {
	idx := New(2, "test-v1")
	mustAdd(t, idx, "a", []float64{1, 0}, core.CategoryTop)
	v1, _ := idx.InsertionVersion("a")
	mustAdd(t, idx, "a", []float64{0, 1}, core.CategoryTop)
	v2, _ := idx.InsertionVersion("a")

	if v2 <= v1 {
		t.Errorf("替换后插入版本应递增：%d <= %d", v2, v1)
	}
	if idx.Len() != 1 {
		t.Errorf("替换不应增加条目数，Len = %d", idx.Len())
	}

	results, err := idx.Query([]float64{0, 1}, 1, core.CategoryAny)
	if err != nil {
		t.Fatalf("Query 失败: %v", err)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-5 {
		t.Errorf("查询应命中新向量，相似度 %v", results[0].Similarity)
	}
}

// TestRemove 删除后不再出现于结果
func TestRemove(t *testing.T) {
	idx := New(2, "test-v1")
	mustAdd(t, idx, "a", []float64{1, 0}, core.CategoryTop)
	mustAdd(t, idx, "b", []float64{0, 1}, core.CategoryTop)

	idx.Remove("a")
	if idx.Has("a") {
		t.Error("删除后 Has 应为 false")
	}
	if idx.Len() != 1 {
		t.Errorf("删除后 Len 应为 1，实际 %d", idx.Len())
	}
	results, _ := idx.Query([]float64{1, 0}, 10, core.CategoryAny)
	for _, r := range results {
		if r.ID == "a" {
			t.Error("删除的物品出现在查询结果中")
		}
	}
	// 删除不存在的 ID 是 no-op
	idx.Remove("missing")
}

// TestQueryErrors 非法输入
func TestQueryErrors(t *testing.T) {
	idx := New(3, "test-v1")
	mustAdd(t, idx, "a", []float64{1, 0, 0}, core.CategoryTop)

	tests := []struct {
		name  string
		vec   []float64
		check func(error) bool
	}{
		{"维度不符", []float64{1, 0}, core.IsDimensionMismatch},
		{"NaN", []float64{math.NaN(), 0, 0}, func(e error) bool { return e != nil }},
		{"零向量", []float64{0, 0, 0}, func(e error) bool { return e != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.Query(tt.vec, 1, core.CategoryAny)
			if !tt.check(err) {
				t.Errorf("期望错误，实际 %v", err)
			}
		})
	}
}

// TestEmptyIndexQuery 空索引返回空结果而非错误
func TestEmptyIndexQuery(t *testing.T) {
	idx := New(2, "test-v1")
	results, err := idx.Query([]float64{1, 0}, 5, core.CategoryAny)
	if err != nil {
		t.Fatalf("空索引查询不应报错: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("空索引应返回空结果，实际 %+v", results)
	}
	if idx.State() != StateEmpty {
		t.Errorf("空索引状态应为 empty，实际 %s", idx.State())
	}
}

// TestBuildSwap 全量重建：换入前旧数据持续可查，换入后整体生效
func TestBuildSwap(t *testing.T) {
	idx := New(2, "test-v1")
	mustAdd(t, idx, "old", []float64{1, 0}, core.CategoryTop)

	build := idx.StartBuild()
	if idx.State() != StateBuilding {
		t.Fatalf("StartBuild 后状态应为 building，实际 %s", idx.State())
	}

	// 重建期间旧索引照常服务
	results, err := idx.Query([]float64{1, 0}, 1, core.CategoryAny)
	if err != nil || len(results) != 1 || results[0].ID != "old" {
		t.Fatalf("重建期间旧数据应可查：%+v, %v", results, err)
	}

	if err := build.Add("new-1", []float64{0, 1}, core.CategoryShoes); err != nil {
		t.Fatalf("Build.Add 失败: %v", err)
	}
	if err := build.Add("new-2", []float64{1, 1}, core.CategoryShoes); err != nil {
		t.Fatalf("Build.Add 失败: %v", err)
	}
	build.Swap()

	if idx.State() != StateReady {
		t.Errorf("Swap 后状态应为 ready，实际 %s", idx.State())
	}
	if idx.Has("old") {
		t.Error("Swap 后旧条目应被整体替换")
	}
	if idx.Len() != 2 {
		t.Errorf("Swap 后 Len 应为 2，实际 %d", idx.Len())
	}
}

// TestBuildAbort 放弃重建，在役索引不受影响
func TestBuildAbort(t *testing.T) {
	idx := New(2, "test-v1")
	mustAdd(t, idx, "keep", []float64{1, 0}, core.CategoryTop)

	build := idx.StartBuild()
	build.Add("discard", []float64{0, 1}, core.CategoryTop)
	build.Abort()

	if idx.State() != StateReady {
		t.Errorf("Abort 后状态应回到 ready，实际 %s", idx.State())
	}
	if !idx.Has("keep") || idx.Has("discard") {
		t.Error("Abort 后在役数据被污染")
	}
}

// TestVectorRoundTrip Vector 返回归一化副本
func TestVectorRoundTrip(t *testing.T) {
	idx := New(2, "test-v1")
	mustAdd(t, idx, "a", []float64{3, 4}, core.CategoryTop)

	vec, ok := idx.Vector("a")
	if !ok {
		t.Fatal("Vector 应命中")
	}
	norm := math.Hypot(vec[0], vec[1])
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("返回向量应为单位长度，范数 %v", norm)
	}
	if _, ok := idx.Vector("missing"); ok {
		t.Error("未知 ID 的 Vector 应返回 false")
	}
}
