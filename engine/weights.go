package engine

import "sort"

// Weights 是策略名 → 融合权重的映射。
type Weights map[string]float64

// DefaultWeights 返回内置权重表，各权重之和为 1.0。
// 调用方传入的自定义权重之和可以不为 1，融合前默认归一化，
// Aggregator.DisableWeightNorm 可关闭。
func DefaultWeights() Weights {
	return Weights{
		"content":       0.25,
		"favorites":     0.20,
		"wardrobe":      0.15,
		"collaborative": 0.15,
		"trending":      0.10,
		"visual":        0.15,
	}
}

// Sum 返回权重之和。
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Normalized 返回和为 1.0 的副本；全零权重原样返回副本。
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	out := make(Weights, len(w))
	if sum == 0 {
		for k, v := range w {
			out[k] = v
		}
		return out
	}
	for k, v := range w {
		out[k] = v / sum
	}
	return out
}

// Names 返回权重表中的策略名（字典序，保证遍历确定性）。
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for k := range w {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
