package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stylekit/stylekit/core"
	"github.com/stylekit/stylekit/filter"
	"github.com/stylekit/stylekit/scorer"
)

var aggNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

// stubScorer 是固定输出的策略桩。
type stubScorer struct {
	name   string
	scores map[string]float64
	err    error
	delay  time.Duration
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(ctx context.Context, _ *core.RecommendContext) (map[string]float64, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.scores, s.err
}

func aggItems() []*core.CatalogItem {
	return []*core.CatalogItem{
		{ID: "a", Category: core.CategoryTop},
		{ID: "b", Category: core.CategoryTop},
		{ID: "c", Category: core.CategoryShoes},
	}
}

func aggRctx(limit int, ins []core.Interaction) *core.RecommendContext {
	snap := core.NewSnapshot(aggItems(), ins, aggNow)
	return &core.RecommendContext{
		UserID:   "u1",
		Limit:    limit,
		Snapshot: snap,
		Profile:  core.BuildStyleProfile(snap, "u1", nil),
	}
}

func resultIDs(items []*core.ScoredItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

// TestAggregateWeightedFusion 加权融合与排序
func TestAggregateWeightedFusion(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "s1", scores: map[string]float64{"a": 1.0, "b": 0.5}},
			&stubScorer{name: "s2", scores: map[string]float64{"b": 1.0}},
		},
		Weights:           Weights{"s1": 0.75, "s2": 0.25},
		DisableWeightNorm: true,
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if err != nil {
		t.Fatalf("Aggregate 失败: %v", err)
	}
	// a = 0.75, b = 0.375 + 0.25 = 0.625
	if got := resultIDs(out); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("期望 [a b]，实际 %v", got)
	}
	if out[0].Score != 0.75 {
		t.Errorf("a 的分数应为 0.75，实际 %v", out[0].Score)
	}
	if out[1].Score != 0.625 {
		t.Errorf("b 的分数应为 0.625，实际 %v", out[1].Score)
	}
}

// TestAggregateWeightMonotonicity 提高某策略权重不应降低其高分物品的排名
func TestAggregateWeightMonotonicity(t *testing.T) {
	scorers := []scorer.Scorer{
		&stubScorer{name: "s1", scores: map[string]float64{"a": 1.0, "b": 0.2}},
		&stubScorer{name: "s2", scores: map[string]float64{"b": 1.0, "a": 0.2}},
	}
	rank := func(w Weights) int {
		agg := &Aggregator{Scorers: scorers, Weights: w}
		out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
		if err != nil {
			t.Fatalf("Aggregate 失败: %v", err)
		}
		for i, it := range out {
			if it.ID == "a" {
				return i
			}
		}
		return -1
	}

	low := rank(Weights{"s1": 0.2, "s2": 0.8})
	high := rank(Weights{"s1": 0.8, "s2": 0.2})
	if high > low {
		t.Errorf("提高 s1 权重后 a 的排名不应下降：%d -> %d", low, high)
	}
}

// TestAggregateDeterministic 同输入多次运行结果一致（含同分平局）
func TestAggregateDeterministic(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "s1", scores: map[string]float64{"a": 0.5, "b": 0.5, "c": 0.5}},
		},
		Weights: Weights{"s1": 1.0},
	}

	var first []string
	for i := 0; i < 10; i++ {
		out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
		if err != nil {
			t.Fatalf("Aggregate 失败: %v", err)
		}
		ids := resultIDs(out)
		if first == nil {
			first = ids
			continue
		}
		if !reflect.DeepEqual(first, ids) {
			t.Fatalf("第 %d 次运行结果不一致：%v vs %v", i, first, ids)
		}
	}
	// 同分平局按目录插入序号（a 先于 b 先于 c）
	if !reflect.DeepEqual(first, []string{"a", "b", "c"}) {
		t.Errorf("平局顺序应为目录插入顺序，实际 %v", first)
	}
}

// TestAggregateScorerDegradation 单策略失败只损失其贡献
func TestAggregateScorerDegradation(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "bad", err: errors.New("model down")},
			&stubScorer{name: "good", scores: map[string]float64{"a": 1.0}},
		},
		Weights: Weights{"bad": 0.5, "good": 0.5},
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if err != nil {
		t.Fatalf("单策略失败不应使整次推荐失败: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("期望只有 good 策略的贡献，实际 %v", resultIDs(out))
	}
}

// TestAggregateUnreadableImagePropagates 用户可纠正错误原样上抛
func TestAggregateUnreadableImagePropagates(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "visual", err: core.NewDomainError(
				core.ModuleExtractor, core.ErrorCodeUnreadableImage, "bad image")},
		},
		Weights: Weights{"visual": 1.0},
	}
	_, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if !core.IsUnreadableImage(err) {
		t.Errorf("期望 UNREADABLE_IMAGE 上抛，实际 %v", err)
	}
}

// TestAggregateScorerTimeout 超时策略按零贡献降级
func TestAggregateScorerTimeout(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "slow", delay: 200 * time.Millisecond,
				scores: map[string]float64{"b": 1.0}},
			&stubScorer{name: "fast", scores: map[string]float64{"a": 1.0}},
		},
		Weights: Weights{"slow": 0.5, "fast": 0.5},
		Timeout: 20 * time.Millisecond,
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if err != nil {
		t.Fatalf("超时不应使整次推荐失败: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("超时策略应零贡献，实际 %v", resultIDs(out))
	}
}

// TestAggregatePurchasedExcluded 已购物品被硬排除
func TestAggregatePurchasedExcluded(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "s1", scores: map[string]float64{"a": 1.0, "b": 0.9}},
		},
		Weights: Weights{"s1": 1.0},
		Filters: []filter.Filter{&filter.InteractedFilter{}},
	}
	ins := []core.Interaction{
		{UserID: "u1", ItemID: "a", Kind: core.KindPurchase, At: aggNow},
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, ins))
	if err != nil {
		t.Fatalf("Aggregate 失败: %v", err)
	}
	for _, it := range out {
		if it.ID == "a" {
			t.Error("已购物品不应出现在推荐结果中")
		}
	}
}

// TestAggregateCategoryFilter 类目硬过滤
func TestAggregateCategoryFilter(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "s1", scores: map[string]float64{"a": 1.0, "c": 0.9}},
		},
		Weights: Weights{"s1": 1.0},
		Filters: []filter.Filter{&filter.CategoryFilter{}},
	}
	rctx := aggRctx(10, nil)
	rctx.Category = core.CategoryShoes
	out, err := agg.Aggregate(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Aggregate 失败: %v", err)
	}
	if len(out) != 1 || out[0].ID != "c" {
		t.Errorf("期望只剩鞋类物品 c，实际 %v", resultIDs(out))
	}
}

// TestAggregateLimit 截断到请求条数
func TestAggregateLimit(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "s1", scores: map[string]float64{"a": 0.9, "b": 0.8, "c": 0.7}},
		},
		Weights: Weights{"s1": 1.0},
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(2, nil))
	if err != nil {
		t.Fatalf("Aggregate 失败: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("结果应截断到 2 条，实际 %d", len(out))
	}
}

// TestAggregateAllEmpty 全部策略无信号返回空列表
func TestAggregateAllEmpty(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "s1", scores: map[string]float64{}},
			&stubScorer{name: "s2"},
		},
		Weights: Weights{"s1": 0.5, "s2": 0.5},
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if err != nil {
		t.Fatalf("全空不应报错: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("全空应返回空列表，实际 %v", resultIDs(out))
	}
}

// TestAggregateReasonLabel 主导策略生成推荐理由
func TestAggregateReasonLabel(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "content", scores: map[string]float64{"a": 1.0}},
			&stubScorer{name: "trending", scores: map[string]float64{"a": 0.1}},
		},
		Weights: Weights{"content": 0.5, "trending": 0.5},
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if err != nil {
		t.Fatalf("Aggregate 失败: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("期望 1 条结果，实际 %d", len(out))
	}
	dominant, ok := out[0].GetLabel("dominant")
	if !ok || dominant.Value != "content" {
		t.Errorf("主导策略应为 content，实际 %+v", dominant)
	}
	reason, ok := out[0].GetLabel("reason")
	if !ok || reason.Value != reasons["content"] {
		t.Errorf("理由应来自主导策略，实际 %+v", reason)
	}
}

// TestAggregateNegativeMaxConcurrent 非正并发上限按无限制处理
func TestAggregateNegativeMaxConcurrent(t *testing.T) {
	agg := &Aggregator{
		Scorers: []scorer.Scorer{
			&stubScorer{name: "content", scores: map[string]float64{"a": 1.0}},
			&stubScorer{name: "trending", scores: map[string]float64{"b": 0.5}},
		},
		MaxConcurrent: -1,
	}
	out, err := agg.Aggregate(context.Background(), aggRctx(10, nil))
	if err != nil {
		t.Fatalf("Aggregate 失败: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("期望 2 条结果，实际 %d", len(out))
	}
}

// TestWeightsNormalized 内置权重之和为 1.0，归一化对非 1 的权重表生效
func TestWeightsNormalized(t *testing.T) {
	w := DefaultWeights()
	if diff := w.Sum() - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("内置权重之和应为 1.0，实际 %v", w.Sum())
	}
	custom := Weights{"content": 0.6, "visual": 0.55}
	n := custom.Normalized()
	if diff := n.Sum() - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("归一化后权重之和应为 1.0，实际 %v", n.Sum())
	}
	if n["content"] <= n["visual"] {
		t.Error("归一化应保持权重相对大小")
	}
}
