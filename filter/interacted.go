package filter

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// InteractedFilter 过滤掉用户已购买 / 已明确拒绝的物品。
// 浏览、收藏、试穿过的物品仍可重复推荐（这些行为不代表"不需要"）。
type InteractedFilter struct {
	// Kinds 触发过滤的行为类型；为空时默认 purchase + dismiss。
	Kinds []core.InteractionKind
}

func (f *InteractedFilter) Name() string {
	return "filter.interacted"
}

func (f *InteractedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.ScoredItem,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Snapshot == nil || rctx.UserID == "" {
		return false, nil
	}
	kinds := f.Kinds
	if len(kinds) == 0 {
		kinds = []core.InteractionKind{core.KindPurchase, core.KindDismiss}
	}
	set := rctx.Snapshot.UserItemSet(rctx.UserID, kinds...)
	_, hit := set[item.ID]
	return hit, nil
}
