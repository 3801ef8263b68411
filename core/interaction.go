package core

import "time"

// InteractionKind 是用户行为类型。
type InteractionKind string

const (
	KindView     InteractionKind = "view"
	KindFavorite InteractionKind = "favorite"
	KindPurchase InteractionKind = "purchase"
	KindTryOn    InteractionKind = "try_on"

	// KindDismiss 表示用户显式拒绝某个推荐结果；聚合时硬排除。
	KindDismiss InteractionKind = "dismiss"
)

// Valid 判断行为类型是否为已知枚举值。
func (k InteractionKind) Valid() bool {
	switch k {
	case KindView, KindFavorite, KindPurchase, KindTryOn, KindDismiss:
		return true
	default:
		return false
	}
}

// ProfileWeight 返回该行为在风格画像中的权重。
// 购买 > 收藏 > 试穿 > 浏览；dismiss 不参与画像。
func (k InteractionKind) ProfileWeight() float64 {
	switch k {
	case KindPurchase:
		return 1.0
	case KindFavorite:
		return 0.8
	case KindTryOn:
		return 0.6
	case KindView:
		return 0.2
	default:
		return 0
	}
}

// Interaction 是一条用户行为记录。
// 行为日志 append-only：记录一经写入不再修改，时间戳驱动热度衰减。
type Interaction struct {
	UserID string          `json:"user_id"`
	ItemID string          `json:"item_id"`
	Kind   InteractionKind `json:"kind"`
	At     time.Time       `json:"at"`
}
