// Package config 提供引擎的 YAML 配置加载与校验。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stylekit/stylekit/core"
)

// Config 是引擎的顶层配置结构（YAML）。
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Index   IndexConfig   `yaml:"index"`
	Engine  EngineConfig  `yaml:"engine"`
	Scorers ScorersConfig `yaml:"scorers"`
	Redis   RedisConfig   `yaml:"redis"`
	Feast   FeastConfig   `yaml:"feast"`
}

// ModelConfig 是特征提取模型服务配置。
type ModelConfig struct {
	// Endpoint 是 TorchServe 类推理服务地址；为空时使用进程内提取器
	Endpoint string `yaml:"endpoint"`
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Dim      int    `yaml:"dim"`

	// TimeoutSec 是单次推理超时（秒）
	TimeoutSec int `yaml:"timeout_sec"`
}

// IndexConfig 是视觉索引配置。
type IndexConfig struct {
	// Path 是索引持久化文件路径；为空时不做启动加载/落盘
	Path string `yaml:"path"`

	// MinSimilarity 是查询相似度下界（0 表示丢弃负相关候选；
	// 留空用 -1 表示不过滤）
	MinSimilarity *float64 `yaml:"min_similarity"`
}

// EngineConfig 是聚合与过滤配置。
type EngineConfig struct {
	// Weights 策略名 → 融合权重；为空使用内置默认
	Weights map[string]float64 `yaml:"weights"`

	// NormalizeWeights 为 false 时按原始权重融合（默认 true）
	NormalizeWeights *bool `yaml:"normalize_weights"`

	// ScorerTimeoutSec 是单个策略的超时（秒）
	ScorerTimeoutSec int `yaml:"scorer_timeout_sec"`

	// MaxConcurrent 是最大并发策略数（0 表示无限制）
	MaxConcurrent int `yaml:"max_concurrent"`

	// FilterRules 是 CEL 规则过滤表达式，逐条生效
	FilterRules []string `yaml:"filter_rules"`

	// InteractionWindowDays 是快照读取行为日志的回看窗口（天，0 表示全量）
	InteractionWindowDays int `yaml:"interaction_window_days"`
}

// ScorersConfig 是各策略的参数配置。
type ScorersConfig struct {
	Content struct {
		Metric   string  `yaml:"metric"`
		MinScore float64 `yaml:"min_score"`
	} `yaml:"content"`
	Favorites struct {
		Metric string `yaml:"metric"`
	} `yaml:"favorites"`
	Wardrobe struct {
		Boost  float64 `yaml:"boost"`
		Metric string  `yaml:"metric"`
	} `yaml:"wardrobe"`
	Collaborative struct {
		TopKUsers      int     `yaml:"top_k_users"`
		MinSimilarity  float64 `yaml:"min_similarity"`
		MinCommonItems int     `yaml:"min_common_items"`
	} `yaml:"collaborative"`
	Trending struct {
		WindowDays   int  `yaml:"window_days"`
		HalfLifeHrs  int  `yaml:"half_life_hours"`
		KindWeighted bool `yaml:"kind_weighted"`
	} `yaml:"trending"`
	Visual struct {
		Fanout int `yaml:"fanout"`
	} `yaml:"visual"`
}

// RedisConfig 是行为日志/缓存的 Redis 配置；Addr 为空时使用内存存储。
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// FeastConfig 是特征库配置；Host 为空时不启用冷启动偏好兜底。
type FeastConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Project  string   `yaml:"project"`
	Features []string `yaml:"features"`
}

// Load 从 YAML 文件加载配置并校验。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置字节并校验。
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("config: parse yaml: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置的内部一致性。
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("config: "+format, args...))
	}
	if c.Model.Dim <= 0 {
		return invalid("model.dim must be positive, got %d", c.Model.Dim)
	}
	if c.Model.Endpoint != "" && c.Model.Name == "" {
		return invalid("model.name is required with model.endpoint")
	}
	for name, w := range c.Engine.Weights {
		if w < 0 {
			return invalid("engine.weights.%s must be non-negative, got %v", name, w)
		}
	}
	if c.Engine.ScorerTimeoutSec < 0 {
		return invalid("engine.scorer_timeout_sec must be non-negative")
	}
	if c.Engine.InteractionWindowDays < 0 {
		return invalid("engine.interaction_window_days must be non-negative")
	}
	if c.Feast.Host != "" && len(c.Feast.Features) == 0 {
		return invalid("feast.features is required with feast.host")
	}
	return nil
}

// NormalizeWeightsEnabled 返回是否启用权重归一化（默认 true）。
func (c *Config) NormalizeWeightsEnabled() bool {
	return c.Engine.NormalizeWeights == nil || *c.Engine.NormalizeWeights
}

// ScorerTimeout 返回单策略超时时长。
func (c *Config) ScorerTimeout() time.Duration {
	return time.Duration(c.Engine.ScorerTimeoutSec) * time.Second
}

// InteractionWindow 返回行为日志回看窗口。
func (c *Config) InteractionWindow() time.Duration {
	return time.Duration(c.Engine.InteractionWindowDays) * 24 * time.Hour
}

// ModelTimeout 返回单次推理超时时长。
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSec) * time.Second
}
