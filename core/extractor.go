package core

import "context"

// FeatureExtractor 是视觉特征提取的领域接口。
//
// 契约：
//   - Extract 对同一模型版本与同一输入必须是确定性的
//   - 图片损坏/格式不支持 → UNREADABLE_IMAGE（用户可纠正，原样上抛）
//   - 模型不可用/推理失败 → EXTRACTION_FAILED（内部错误，调用方降级：
//     跳过视觉策略的贡献，不无限重试）
//   - 提取是本核心中唯一的慢调用，由调用方通过 ctx 限时
//
// 实现：
//   - extractor.RemoteExtractor：对接 TorchServe 类模型服务
//   - extractor.HashExtractor：进程内确定性实现（测试/开发）
type FeatureExtractor interface {
	// Name 返回提取器名称（用于日志/监控）
	Name() string

	// Dim 返回输出向量维度（如 ResNet50 avgpool 输出 2048）
	Dim() int

	// ModelVersion 返回骨干模型版本串，持久化索引时写入文件头做兼容校验
	ModelVersion() string

	// Extract 把图片原始字节映射为定长稠密向量（未归一化）
	Extract(ctx context.Context, image []byte) ([]float64, error)

	// Close 释放底层连接/资源
	Close() error
}
