// Package scorer 实现六个独立的推荐策略（content / favorites / wardrobe /
// collaborative / trending / visual），供聚合器并发 fan-out。
package scorer

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// Scorer 表示一个可复用的打分策略单元。
//
// 契约：
//   - 返回 item_id → 原始分数 ∈ [0, 1] 的映射
//   - 无可用信号（冷启动用户、空快照）时返回空 map，而非错误
//   - 只读 rctx.Snapshot / rctx.Profile，不触碰存储
//   - 错误由聚合器捕获并按"该策略零贡献"降级
type Scorer interface {
	Name() string
	Score(ctx context.Context, rctx *core.RecommendContext) (map[string]float64, error)
}
