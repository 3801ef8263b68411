package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 调用方通过 IsXXX 检查函数分支，不做字符串匹配
//
// 传播策略（见 Aggregator）：
//   - 单个策略失败只损失该策略的贡献，不使整次推荐失败
//   - UNREADABLE_IMAGE 属用户可纠正错误，原样上抛给调用方
//   - DIMENSION_MISMATCH 属启动期致命错误，禁止静默截断/补零
type DomainError struct {
	Code    string // 错误代码（如 "UNREADABLE_IMAGE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "extractor", "index"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeUnreadableImage   = "UNREADABLE_IMAGE"   // 图片损坏或格式不支持（用户可纠正）
	ErrorCodeExtractionFailed  = "EXTRACTION_FAILED"  // 特征模型不可用（内部，触发降级）
	ErrorCodeIndexUnavailable  = "INDEX_UNAVAILABLE"  // 索引未加载（视为零视觉候选）
	ErrorCodeDimensionMismatch = "DIMENSION_MISMATCH" // 索引与模型维度/版本漂移（启动期致命）
	ErrorCodeNotFound          = "NOT_FOUND"          // 资源不存在
	ErrorCodeNotSupported      = "NOT_SUPPORTED"      // 操作不支持
	ErrorCodeInvalidInput      = "INVALID_INPUT"      // 输入无效
	ErrorCodeInternalError     = "INTERNAL_ERROR"     // 内部错误
)

// 模块名称常量
const (
	ModuleExtractor = "extractor" // 特征提取
	ModuleIndex     = "index"     // 视觉索引
	ModuleScorer    = "scorer"    // 策略打分
	ModuleEngine    = "engine"    // 引擎/聚合
	ModuleStore     = "store"     // 存储
	ModuleConfig    = "config"    // 配置
)

func codeIs(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsUnreadableImage 检查错误是否为图片不可读。
func IsUnreadableImage(err error) bool { return codeIs(err, ErrorCodeUnreadableImage) }

// IsExtractionFailed 检查错误是否为特征提取失败。
func IsExtractionFailed(err error) bool { return codeIs(err, ErrorCodeExtractionFailed) }

// IsIndexUnavailable 检查错误是否为索引不可用。
func IsIndexUnavailable(err error) bool { return codeIs(err, ErrorCodeIndexUnavailable) }

// IsDimensionMismatch 检查错误是否为维度/版本不匹配。
func IsDimensionMismatch(err error) bool { return codeIs(err, ErrorCodeDimensionMismatch) }

// IsNotFound 检查错误是否为资源不存在。
func IsNotFound(err error) bool { return codeIs(err, ErrorCodeNotFound) }

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在。
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持。
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在。
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}
