// Package extractor 提供 core.FeatureExtractor 的实现：
// 远端模型服务客户端（生产）与进程内确定性实现（测试/开发）。
package extractor

import (
	"bytes"
	"fmt"
	"image"

	// 注册常见图片格式的解码器；webp 来自 golang.org/x/image。
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/stylekit/stylekit/core"
)

// ValidateImage 校验图片字节是否可解码（jpeg/png/gif/webp）。
// 失败返回 UNREADABLE_IMAGE：这是用户可纠正错误，调用方应原样上抛。
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return core.NewDomainError(core.ModuleExtractor, core.ErrorCodeUnreadableImage, "extractor: empty image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return core.NewDomainError(core.ModuleExtractor, core.ErrorCodeUnreadableImage,
			fmt.Sprintf("extractor: undecodable image: %v", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return core.NewDomainError(core.ModuleExtractor, core.ErrorCodeUnreadableImage,
			fmt.Sprintf("extractor: degenerate %s image %dx%d", format, cfg.Width, cfg.Height))
	}
	return nil
}
