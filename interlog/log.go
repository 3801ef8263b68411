// Package interlog 实现行为日志：追加写入 KeyValueStore 的有序集合，
// score 为行为时间戳，时间窗口查询走 ZRangeByScore。
package interlog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/stylekit/stylekit/core"
)

const (
	// keyAll 是全体用户行为的有序集合 key。
	keyAll = "interlog:all"

	// keyUserPrefix + userID 是单用户行为的有序集合 key。
	keyUserPrefix = "interlog:user:"
)

// Log 是行为日志的默认实现，底层为任意 KeyValueStore
// （开发用 MemoryStore，生产用 RedisStore）。
//
// 写入模型：每条行为 JSON 序列化后作为 zset member，
// score 为行为时间的 unix 秒。行为只追加、不更新；
// 用户"取消收藏"等场景由上游以新行为表达，而非改写历史。
type Log struct {
	kv core.KeyValueStore
}

// NewLog 基于 KeyValueStore 创建行为日志。
func NewLog(kv core.KeyValueStore) *Log {
	return &Log{kv: kv}
}

var _ core.InteractionStore = (*Log)(nil)

// Append 追加一条行为记录。At 零值时补当前时间。
func (l *Log) Append(ctx context.Context, in core.Interaction) error {
	if in.UserID == "" || in.ItemID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			"interlog: empty user or item id")
	}
	if !in.Kind.Valid() {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			fmt.Sprintf("interlog: unknown interaction kind %q", in.Kind))
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}

	member, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("interlog: marshal: %w", err)
	}
	score := float64(in.At.Unix())
	if err := l.kv.ZAdd(ctx, keyUserPrefix+in.UserID, score, string(member)); err != nil {
		return fmt.Errorf("interlog: append user log: %w", err)
	}
	if err := l.kv.ZAdd(ctx, keyAll, score, string(member)); err != nil {
		return fmt.Errorf("interlog: append global log: %w", err)
	}
	return nil
}

// UserInteractions 返回用户在 since 之后的行为记录（since 零值表示全部）。
func (l *Log) UserInteractions(ctx context.Context, userID string, since time.Time) ([]core.Interaction, error) {
	return l.rangeKey(ctx, keyUserPrefix+userID, since)
}

// ListInteractions 返回全体用户在 since 之后的行为记录。
func (l *Log) ListInteractions(ctx context.Context, since time.Time) ([]core.Interaction, error) {
	return l.rangeKey(ctx, keyAll, since)
}

func (l *Log) rangeKey(ctx context.Context, key string, since time.Time) ([]core.Interaction, error) {
	min := math.Inf(-1)
	if !since.IsZero() {
		min = float64(since.Unix())
	}
	members, err := l.kv.ZRangeByScore(ctx, key, min, math.Inf(1))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("interlog: range: %w", err)
	}

	out := make([]core.Interaction, 0, len(members))
	for _, m := range members {
		var in core.Interaction
		if err := json.Unmarshal([]byte(m), &in); err != nil {
			// 坏记录跳过，不使整次读取失败
			continue
		}
		out = append(out, in)
	}
	return out, nil
}
