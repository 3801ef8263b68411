package scorer

import (
	"context"
	"math"
	"time"

	"github.com/stylekit/stylekit/core"
)

// Trending 是热度策略：统计时间窗口内的行为量，按指数半衰期加权，
// 最后做 min-max 归一化（最热物品记 1.0）。
//
// 热度是全局信号，与用户无关，主要承担冷启动兜底与榜单多样性。
type Trending struct {
	// Window 统计窗口（默认 7 天）；窗口外的行为不参与计算。
	Window time.Duration

	// HalfLife 热度半衰期（默认 48 小时）：两天前的一次行为
	// 相当于现在的半次。
	HalfLife time.Duration

	// KindWeighted 为 true 时按行为类型加权（购买 > 收藏 > 试穿 > 浏览），
	// 否则每条行为等权计 1。
	KindWeighted bool
}

func (s *Trending) Name() string { return "trending" }

func (s *Trending) Score(
	_ context.Context,
	rctx *core.RecommendContext,
) (map[string]float64, error) {
	out := make(map[string]float64)
	if rctx == nil || rctx.Snapshot == nil {
		return out, nil
	}
	snap := rctx.Snapshot

	window := s.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	halfLife := s.HalfLife
	if halfLife <= 0 {
		halfLife = 48 * time.Hour
	}

	heat := make(map[string]float64)
	for _, in := range snap.InteractionsSince(window) {
		if _, ok := snap.Item(in.ItemID); !ok {
			continue
		}
		w := 1.0
		if s.KindWeighted {
			w = in.Kind.ProfileWeight()
			if w == 0 {
				continue
			}
		}
		age := snap.Now.Sub(in.At)
		if age < 0 {
			age = 0
		}
		decay := math.Exp(-math.Ln2 * age.Seconds() / halfLife.Seconds())
		heat[in.ItemID] += w * decay
	}
	if len(heat) == 0 {
		return out, nil
	}

	var max float64
	for _, h := range heat {
		if h > max {
			max = h
		}
	}
	for id, h := range heat {
		out[id] = clamp01(h / max)
	}
	return out, nil
}
