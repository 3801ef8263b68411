package core

import (
	"reflect"
	"testing"
	"time"
)

var profNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func profItems() []*CatalogItem {
	return []*CatalogItem{
		{ID: "tee-1", Category: CategoryTop, Attrs: []string{"casual", "cotton"}},
		{ID: "dress-1", Category: CategoryDress, Attrs: []string{"formal"}},
	}
}

// TestBuildStyleProfile 行为加权聚合与归一化
func TestBuildStyleProfile(t *testing.T) {
	ins := []Interaction{
		{UserID: "u1", ItemID: "tee-1", Kind: KindPurchase, At: profNow},
		{UserID: "u1", ItemID: "dress-1", Kind: KindView, At: profNow},
	}
	snap := NewSnapshot(profItems(), ins, profNow)
	p := BuildStyleProfile(snap, "u1", nil)

	if p.InteractionCount != 2 {
		t.Errorf("InteractionCount = %d", p.InteractionCount)
	}
	// 购买权重 1.0 归一后为 1.0；浏览 0.2
	if p.TagWeights["casual"] != 1.0 {
		t.Errorf("casual 权重 = %v", p.TagWeights["casual"])
	}
	if w := p.TagWeights["formal"]; w <= 0 || w >= p.TagWeights["casual"] {
		t.Errorf("弱行为标签权重应低于强行为：formal = %v", w)
	}
	if p.CategoryCounts[CategoryTop] != 1 {
		t.Errorf("购买类目计数 = %v", p.CategoryCounts)
	}
	if p.CategoryCounts[CategoryDress] != 0 {
		t.Error("浏览不应计入衣橱")
	}
}

// TestBuildStyleProfileStoredPrefs 存量偏好兜底
func TestBuildStyleProfileStoredPrefs(t *testing.T) {
	snap := NewSnapshot(profItems(), nil, profNow)
	p := BuildStyleProfile(snap, "newcomer", map[string]float64{"vintage": 0.9, "casual": 0.3})

	if p.InteractionCount != 0 {
		t.Errorf("无行为用户 InteractionCount = %d", p.InteractionCount)
	}
	if p.Empty() {
		t.Error("存量偏好应构成画像")
	}
	if p.TagWeights["vintage"] != 1.0 {
		t.Errorf("最大权重应归一到 1.0，实际 %v", p.TagWeights["vintage"])
	}
}

// TestStyleProfileEmpty 空画像判定（nil 安全）
func TestStyleProfileEmpty(t *testing.T) {
	var p *StyleProfile
	if !p.Empty() {
		t.Error("nil 画像应为 Empty")
	}
	snap := NewSnapshot(profItems(), nil, profNow)
	if !BuildStyleProfile(snap, "nobody", nil).Empty() {
		t.Error("零信号画像应为 Empty")
	}
}

// TestTopTags 确定性排序
func TestTopTags(t *testing.T) {
	p := &StyleProfile{TagWeights: map[string]float64{
		"b": 0.5, "a": 0.5, "c": 1.0,
	}}
	got := p.TopTags(3)
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopTags = %v, want %v", got, want)
	}
	if n := len(p.TopTags(10)); n != 3 {
		t.Errorf("n 超过标签数时应截断，实际 %d", n)
	}
}

// TestSnapshotSeq 平局键：未知物品排最后
func TestSnapshotSeq(t *testing.T) {
	snap := NewSnapshot(profItems(), nil, profNow)
	if snap.Seq("tee-1") >= snap.Seq("dress-1") {
		t.Error("Seq 应按目录插入顺序递增")
	}
	if snap.Seq("missing") <= snap.Seq("dress-1") {
		t.Error("未知物品的 Seq 应大于所有已知物品")
	}
}

// TestSnapshotUserItemSet 行为类型筛选
func TestSnapshotUserItemSet(t *testing.T) {
	ins := []Interaction{
		{UserID: "u1", ItemID: "tee-1", Kind: KindPurchase, At: profNow},
		{UserID: "u1", ItemID: "dress-1", Kind: KindView, At: profNow},
	}
	snap := NewSnapshot(profItems(), ins, profNow)

	all := snap.UserItemSet("u1")
	if len(all) != 2 {
		t.Errorf("全部行为集合大小 = %d", len(all))
	}
	purchased := snap.UserItemSet("u1", KindPurchase)
	if len(purchased) != 1 {
		t.Errorf("购买集合大小 = %d", len(purchased))
	}
	if _, ok := purchased["tee-1"]; !ok {
		t.Error("购买集合应包含 tee-1")
	}
}

// TestSnapshotInteractionsSince 时间窗口
func TestSnapshotInteractionsSince(t *testing.T) {
	ins := []Interaction{
		{UserID: "u1", ItemID: "tee-1", Kind: KindView, At: profNow.Add(-time.Hour)},
		{UserID: "u1", ItemID: "dress-1", Kind: KindView, At: profNow.Add(-48 * time.Hour)},
	}
	snap := NewSnapshot(profItems(), ins, profNow)

	if n := len(snap.InteractionsSince(24 * time.Hour)); n != 1 {
		t.Errorf("24h 窗口内应有 1 条，实际 %d", n)
	}
	if n := len(snap.InteractionsSince(0)); n != 2 {
		t.Errorf("窗口 0 表示全量，实际 %d", n)
	}
}
