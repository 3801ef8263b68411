package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stylekit/stylekit/core"
)

// RemoteExtractor 对接 TorchServe 类模型服务，把图片字节送入
// 冻结的骨干网络（如去掉分类头的 ResNet50）取嵌入向量。
//
// REST 约定：
//   - 推理端点：POST {Endpoint}/predictions/{Model}
//   - 请求体：图片原始字节（application/octet-stream）
//   - 响应：JSON 浮点数组（骨干 avgpool 输出，未归一化）
//
// 错误映射：
//   - 图片不可解码 → UNREADABLE_IMAGE（发请求前本地校验）
//   - 连接失败 / 非 2xx / 响应不合法 → EXTRACTION_FAILED
//
// 提取是推荐链路中唯一的慢调用；调用方用 ctx 限时，
// 超时后跳过视觉策略，不做无限重试。
type RemoteExtractor struct {
	// Endpoint 服务端点，如 "http://localhost:8080"
	Endpoint string

	// Model 模型名称，如 "fashion_resnet50"
	Model string

	// Version 骨干模型版本串，持久化索引的兼容校验键
	Version string

	// Dimension 输出向量维度
	Dimension int

	// Timeout 单次推理的默认超时（ctx 更严格时以 ctx 为准）
	Timeout time.Duration

	httpClient *http.Client
}

// RemoteOption 是 RemoteExtractor 的配置选项。
type RemoteOption func(*RemoteExtractor)

// WithTimeout 设置默认推理超时。
func WithTimeout(timeout time.Duration) RemoteOption {
	return func(e *RemoteExtractor) {
		e.Timeout = timeout
		if e.httpClient != nil {
			e.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient 设置自定义 HTTP 客户端。
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(e *RemoteExtractor) {
		e.httpClient = client
	}
}

// NewRemoteExtractor 创建一个远端特征提取客户端。
func NewRemoteExtractor(endpoint, model, version string, dim int, opts ...RemoteOption) *RemoteExtractor {
	e := &RemoteExtractor{
		Endpoint:  endpoint,
		Model:     model,
		Version:   version,
		Dimension: dim,
		Timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: e.Timeout}
	}
	return e
}

func (e *RemoteExtractor) Name() string         { return "extractor.remote" }
func (e *RemoteExtractor) Dim() int             { return e.Dimension }
func (e *RemoteExtractor) ModelVersion() string { return e.Version }

// Extract 实现 core.FeatureExtractor。
func (e *RemoteExtractor) Extract(ctx context.Context, imageData []byte) ([]float64, error) {
	if err := ValidateImage(imageData); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/predictions/%s", e.Endpoint, e.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(imageData))
	if err != nil {
		return nil, extractionFailed("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, extractionFailed("model service unreachable: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, extractionFailed("read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, extractionFailed("model service status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var vec []float64
	if err := json.Unmarshal(body, &vec); err != nil {
		return nil, extractionFailed("decode embedding: %v", err)
	}
	if len(vec) != e.Dimension {
		return nil, extractionFailed("embedding dim %d, want %d", len(vec), e.Dimension)
	}
	return vec, nil
}

// Close 实现 core.FeatureExtractor；HTTP 客户端无持久连接需释放。
func (e *RemoteExtractor) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

func extractionFailed(format string, args ...any) error {
	return core.NewDomainError(core.ModuleExtractor, core.ErrorCodeExtractionFailed,
		"extractor: "+fmt.Sprintf(format, args...))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
