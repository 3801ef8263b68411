// Package utils 提供推荐链路的通用小件：Label 标签与合并规则。
package utils

import "strings"

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// Value 承载内容（策略名、理由文案、分数串），Source 标记产生阶段
// （scorer / aggregator / filter / engine）。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// MergeLabel 用于合并同名 Label，遵循"保留历史、可追踪"的默认策略。
//   - Value: 以 '|' 累积
//   - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// First 返回合并 Label 中的首个 Value（即最早写入的值）。
// 聚合器用它取"主导策略"生成推荐理由。
func (l Label) First() string {
	if i := strings.IndexByte(l.Value, '|'); i >= 0 {
		return l.Value[:i]
	}
	return l.Value
}

// Values 返回合并 Label 的全部 Value。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, "|")
}
