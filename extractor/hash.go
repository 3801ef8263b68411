package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/stylekit/stylekit/core"
)

// HashExtractor 是进程内的确定性特征提取器，用于测试/开发/原型。
// 平替远端模型服务：同一输入永远产出同一向量（SHA-256 流展开），
// 不具备任何视觉语义。
type HashExtractor struct {
	// Dimension 输出向量维度（默认 64，测试够用）
	Dimension int

	// Version 伪模型版本串
	Version string

	// ValidateImages 为 true 时先做图片解码校验（复现 UNREADABLE_IMAGE 路径）
	ValidateImages bool
}

// NewHashExtractor 创建确定性提取器。
func NewHashExtractor(dim int) *HashExtractor {
	if dim <= 0 {
		dim = 64
	}
	return &HashExtractor{Dimension: dim, Version: "hash-v1"}
}

func (e *HashExtractor) Name() string { return "extractor.hash" }

func (e *HashExtractor) Dim() int { return e.Dimension }

func (e *HashExtractor) ModelVersion() string {
	if e.Version == "" {
		return "hash-v1"
	}
	return e.Version
}

// Extract 实现 core.FeatureExtractor。
func (e *HashExtractor) Extract(_ context.Context, imageData []byte) ([]float64, error) {
	if e.ValidateImages {
		if err := ValidateImage(imageData); err != nil {
			return nil, err
		}
	} else if len(imageData) == 0 {
		return nil, core.NewDomainError(core.ModuleExtractor, core.ErrorCodeUnreadableImage, "extractor: empty image")
	}

	vec := make([]float64, e.Dimension)
	seed := sha256.Sum256(imageData)
	block := seed
	for i := range vec {
		word := i % 4
		if i > 0 && word == 0 {
			block = sha256.Sum256(block[:])
		}
		bits := binary.LittleEndian.Uint64(block[word*8 : word*8+8])
		// 映射到 [-1, 1)
		vec[i] = float64(int64(bits)) / float64(1<<63)
	}
	return vec, nil
}

func (e *HashExtractor) Close() error { return nil }
