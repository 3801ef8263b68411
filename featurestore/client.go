// Package featurestore 对接 Feast Feature Store，为冷启动用户提供
// 存量偏好标签（core.PreferenceProvider 的基础设施实现）。
package featurestore

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// Client 是特征库客户端的领域接口。
// 领域层只关心"用户 → 偏好标签权重"，在线存储细节由实现承担。
type Client interface {
	// UserTags 获取用户的存量偏好标签权重；无记录返回空 map
	UserTags(ctx context.Context, userID string) (map[string]float64, error)

	// Close 关闭客户端连接
	Close() error
}

var _ core.PreferenceProvider = (Client)(nil)
