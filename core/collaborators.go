package core

import (
	"context"
	"time"
)

// CatalogStore 是目录存储的只读接口（外部协作方）。
// 引擎只读目录数据，不拥有其生命周期。
type CatalogStore interface {
	// GetItem 按 ID 获取物品
	GetItem(ctx context.Context, id string) (*CatalogItem, error)

	// ListItems 按类目列出物品（CategoryAny 表示全部），目录插入顺序
	ListItems(ctx context.Context, category Category) ([]*CatalogItem, error)
}

// InteractionStore 是行为日志的只读接口（外部协作方）。
// interlog.Log 提供默认实现。
type InteractionStore interface {
	// UserInteractions 获取用户在 since 之后的行为记录（since 零值表示全部）
	UserInteractions(ctx context.Context, userID string, since time.Time) ([]Interaction, error)

	// ListInteractions 获取全体用户在 since 之后的行为记录
	ListInteractions(ctx context.Context, since time.Time) ([]Interaction, error)
}

// PreferenceProvider 是存量用户偏好的可选来源（特征库协作方）。
// 冷启动用户没有行为数据时，画像退化为存量偏好标签。
type PreferenceProvider interface {
	// UserTags 获取用户的存量偏好标签权重；无记录返回空 map
	UserTags(ctx context.Context, userID string) (map[string]float64, error)
}

// Logger 是日志协作方的窄接口。
// 本库自身不绑定日志实现；引擎通过它记录策略降级与索引生命周期事件。
// slog/zap 均可做一个薄适配。
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger 是丢弃全部输出的 Logger（默认值）。
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
