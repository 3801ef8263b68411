package scorer

import "math"

// cosineSimilarityForMaps 计算两个标签权重表的余弦相似度。
// 权重非负时结果落在 [0, 1]。
func cosineSimilarityForMaps(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// jaccardSimilarity 计算两个加权标签表的广义 Jaccard 相似度：
// Σmin / Σmax，落在 [0, 1]。
func jaccardSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var minSum, maxSum float64
	for k, va := range a {
		vb := b[k]
		minSum += math.Min(va, vb)
		maxSum += math.Max(va, vb)
	}
	for k, vb := range b {
		if _, ok := a[k]; !ok {
			maxSum += vb
		}
	}
	if maxSum == 0 {
		return 0
	}
	return minSum / maxSum
}

// jaccardSets 计算两个 ID 集合的 Jaccard 相似度：|∩| / |∪|。
func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var inter int
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
