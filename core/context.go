package core

import "github.com/stylekit/stylekit/pkg/utils"

// RecommendContext 承载单次推荐请求的全部输入，贯穿各策略透传。
//
// 数据由调用方（Engine）注入：Snapshot 与 Profile 在请求开始时一次性读取，
// 策略之间共享同一份只读视图。
type RecommendContext struct {
	// UserID 是发起请求的用户；匿名的以图搜图请求可为空。
	UserID string

	// QueryItemID 是显式查询物品（find_similar_by_id 场景）。
	QueryItemID string

	// QueryImage 是上传的查询图片原始字节（find_similar_by_image 场景）。
	QueryImage []byte

	// Category 是类目硬过滤；CategoryAny 表示不过滤。
	Category Category

	// Limit 是期望返回的结果条数上限。
	Limit int

	// Snapshot 是本次请求的目录 + 行为数据视图。
	Snapshot *Snapshot

	// Profile 是按需重算的用户风格画像（可为 nil，策略需容忍）。
	Profile *StyleProfile

	// Labels 是请求级标签，可驱动策略行为（如实验桶、降级开关）。
	Labels map[string]utils.Label

	// Params 是请求级扩展参数。
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 读取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
