package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stylekit/stylekit/core"
)

// TestPersistLoadRoundTrip 落盘再载入，查询结果一致
func TestPersistLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visual.idx")

	idx := New(3, "resnet50-v2")
	mustAdd(t, idx, "a", []float64{1, 0, 0}, core.CategoryTop)
	mustAdd(t, idx, "b", []float64{0.7, 0.7, 0}, core.CategoryShoes)
	mustAdd(t, idx, "c", []float64{0, 0, 1}, core.CategoryDress)
	idx.Remove("c") // 墓碑行不应落盘

	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist 失败: %v", err)
	}

	loaded := New(3, "resnet50-v2")
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("载入后 Len 应为 2，实际 %d", loaded.Len())
	}
	if loaded.Has("c") {
		t.Error("墓碑条目不应被持久化")
	}
	if loaded.State() != StateReady {
		t.Errorf("非空载入后状态应为 ready，实际 %s", loaded.State())
	}

	query := []float64{1, 0.1, 0}
	want, err := idx.Query(query, 2, core.CategoryAny)
	if err != nil {
		t.Fatalf("原索引 Query 失败: %v", err)
	}
	got, err := loaded.Query(query, 2, core.CategoryAny)
	if err != nil {
		t.Fatalf("载入索引 Query 失败: %v", err)
	}
	if len(want) != len(got) {
		t.Fatalf("结果条数不一致：%d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i].ID != got[i].ID {
			t.Errorf("第 %d 条 ID 不一致：%s vs %s", i, want[i].ID, got[i].ID)
		}
		if diff := want[i].Similarity - got[i].Similarity; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("第 %d 条相似度漂移：%v vs %v", i, want[i].Similarity, got[i].Similarity)
		}
	}
}

// TestPersistConcurrentWrites 落盘与增量写并发执行，产物始终完整可载入
func TestPersistConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	idx := New(3, "resnet50-v2")
	for i := 0; i < 16; i++ {
		mustAdd(t, idx, fmt.Sprintf("seed-%02d", i), []float64{1, float64(i), 0}, core.CategoryTop)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := fmt.Sprintf("hot-%02d", i%8)
			if i%3 == 0 {
				idx.Remove(id)
				continue
			}
			if err := idx.Add(id, []float64{0.5, 1, float64(i%7 + 1)}, core.CategoryShoes); err != nil {
				t.Errorf("Add 失败: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, fmt.Sprintf("visual-%02d.idx", i))
		if err := idx.Persist(path); err != nil {
			t.Fatalf("Persist 失败: %v", err)
		}
		loaded := New(3, "resnet50-v2")
		if err := loaded.Load(path); err != nil {
			t.Fatalf("并发写期间的落盘产物 Load 失败: %v", err)
		}
		for j := 0; j < 16; j++ {
			if !loaded.Has(fmt.Sprintf("seed-%02d", j)) {
				t.Errorf("落盘产物缺少未改动的条目 seed-%02d", j)
			}
		}
	}
	close(stop)
	wg.Wait()
}

// TestLoadDimensionMismatch 维度漂移必须快速失败
func TestLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visual.idx")

	idx := New(3, "resnet50-v2")
	mustAdd(t, idx, "a", []float64{1, 0, 0}, core.CategoryTop)
	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist 失败: %v", err)
	}

	other := New(4, "resnet50-v2")
	err := other.Load(path)
	if !core.IsDimensionMismatch(err) {
		t.Errorf("期望 DIMENSION_MISMATCH，实际 %v", err)
	}
}

// TestLoadModelMismatch 模型版本漂移同样致命
func TestLoadModelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visual.idx")

	idx := New(3, "resnet50-v2")
	mustAdd(t, idx, "a", []float64{1, 0, 0}, core.CategoryTop)
	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist 失败: %v", err)
	}

	other := New(3, "resnet50-v3")
	err := other.Load(path)
	if !core.IsDimensionMismatch(err) {
		t.Errorf("期望 DIMENSION_MISMATCH，实际 %v", err)
	}
}

// TestLoadCorruptFile 损坏文件不得静默成功
func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.idx")
	if err := os.WriteFile(path, []byte("not an index file"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := New(3, "resnet50-v2")
	if err := idx.Load(path); err == nil {
		t.Error("损坏文件 Load 应报错")
	}
}
