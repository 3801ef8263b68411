package filter

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// CategoryFilter 按请求类目做硬过滤：rctx.Category 非 CategoryAny 时
// 只保留该类目的物品。目录中不存在的 ID 一律过滤。
type CategoryFilter struct{}

func (f *CategoryFilter) Name() string {
	return "filter.category"
}

func (f *CategoryFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.ScoredItem,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Snapshot == nil {
		return false, nil
	}
	cat, ok := rctx.Snapshot.Item(item.ID)
	if !ok {
		return true, nil
	}
	if rctx.Category == core.CategoryAny {
		return false, nil
	}
	return cat.Category != rctx.Category, nil
}
