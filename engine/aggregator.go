package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stylekit/stylekit/core"
	"github.com/stylekit/stylekit/filter"
	"github.com/stylekit/stylekit/pkg/utils"
	"github.com/stylekit/stylekit/scorer"
)

// Aggregator 并发执行多个打分策略，做加权融合、过滤与确定性排序。
//
// 降级语义：
//   - 单个策略失败/超时只损失该策略的贡献，整次推荐照常返回
//   - 例外：UNREADABLE_IMAGE 属用户可纠正错误，原样上抛
//   - 全部策略无信号时返回空列表，不是错误
type Aggregator struct {
	Scorers []scorer.Scorer

	// Weights 是策略融合权重；为空时使用 DefaultWeights。
	Weights Weights

	// DisableWeightNorm 为 true 时跳过权重归一化，按原始权重融合
	// （权重表之和可以不为 1）。
	DisableWeightNorm bool

	// Timeout 是每个策略的超时时间（0 表示不限制）。
	Timeout time.Duration

	// MaxConcurrent 是最大并发策略数（0 表示无限制）。
	MaxConcurrent int

	// Filters 在排序之前依次生效。
	Filters []filter.Filter

	// Logger 记录策略降级事件；为 nil 时静默。
	Logger core.Logger
}

// reasons 是主导策略 → 推荐理由文案。
var reasons = map[string]string{
	"content":       "matches your style profile",
	"favorites":     "similar to items you favorited",
	"wardrobe":      "completes your wardrobe",
	"collaborative": "popular with users like you",
	"trending":      "trending right now",
	"visual":        "visually similar to items you like",
}

func (a *Aggregator) logger() core.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return core.NopLogger{}
}

// Aggregate 执行全部策略并返回排好序、截断到 rctx.Limit 的推荐结果。
func (a *Aggregator) Aggregate(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.ScoredItem, error) {
	if len(a.Scorers) == 0 {
		return nil, nil
	}

	weights := a.Weights
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	if !a.DisableWeightNorm {
		weights = weights.Normalized()
	}

	// 并发打分；结果按策略位置收集，合并阶段顺序确定
	results := make([]map[string]float64, len(a.Scorers))
	eg, egCtx := errgroup.WithContext(ctx)

	// 限流：使用 semaphore 控制并发数（非正值视为无限制）
	limit := a.MaxConcurrent
	if limit < 0 {
		limit = 0
	}
	sem := make(chan struct{}, limit)
	if limit == 0 {
		close(sem) // 无限制时直接关闭，避免阻塞
	}

	for i, s := range a.Scorers {
		idx, sc := i, s
		eg.Go(func() error {
			if limit > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			scoreCtx := egCtx
			if a.Timeout > 0 {
				var cancel context.CancelFunc
				scoreCtx, cancel = context.WithTimeout(egCtx, a.Timeout)
				defer cancel()
			}

			scores, err := sc.Score(scoreCtx, rctx)
			if err != nil {
				if core.IsUnreadableImage(err) {
					return err
				}
				// 其他错误降级：该策略零贡献，不中断整次推荐
				a.logger().Warnf("scorer %s degraded: %v", sc.Name(), err)
				return nil
			}
			results[idx] = scores
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 加权融合（按策略声明顺序合并，保证 label 顺序确定）
	type contribution struct {
		strategy string
		value    float64
	}
	fused := make(map[string]*core.ScoredItem)
	best := make(map[string]contribution)
	for i, sc := range a.Scorers {
		w := weights[sc.Name()]
		if w == 0 || len(results[i]) == 0 {
			continue
		}
		for id, raw := range results[i] {
			contrib := w * raw
			it, ok := fused[id]
			if !ok {
				it = core.NewScoredItem(id)
				fused[id] = it
			}
			it.Score += contrib
			it.PutLabel("strategy", utils.Label{Value: sc.Name(), Source: "scorer"})
			it.PutLabel("score:"+sc.Name(),
				utils.Label{Value: fmt.Sprintf("%.4f", raw), Source: "scorer"})
			if prev, seen := best[id]; !seen || contrib > prev.value {
				best[id] = contribution{strategy: sc.Name(), value: contrib}
			}
		}
	}
	if len(fused) == 0 {
		return nil, nil
	}

	// 主导策略生成推荐理由
	for id, it := range fused {
		dominant := best[id].strategy
		reason, ok := reasons[dominant]
		if !ok {
			reason = "recommended by " + dominant
		}
		it.PutLabel("reason", utils.Label{Value: reason, Source: "aggregator"})
		it.PutLabel("dominant", utils.Label{Value: dominant, Source: "aggregator"})
	}

	// 过滤（排序之前）；过滤器报错按保留处理，只记日志
	kept := make([]*core.ScoredItem, 0, len(fused))
	for _, it := range fused {
		drop := false
		for _, f := range a.Filters {
			hit, err := f.ShouldFilter(ctx, rctx, it)
			if err != nil {
				a.logger().Warnf("filter %s failed on %s: %v", f.Name(), it.ID, err)
				continue
			}
			if hit {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, it)
		}
	}

	// 确定性排序：分数降序，同分按目录插入序号升序，再按 ID 升序
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if rctx != nil && rctx.Snapshot != nil {
			si, sj := rctx.Snapshot.Seq(kept[i].ID), rctx.Snapshot.Seq(kept[j].ID)
			if si != sj {
				return si < sj
			}
		}
		return kept[i].ID < kept[j].ID
	})

	if rctx != nil && rctx.Limit > 0 && len(kept) > rctx.Limit {
		kept = kept[:rctx.Limit]
	}
	return kept, nil
}
