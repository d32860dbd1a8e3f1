// =============================================================================
// 📦 hedgeflow 配置加载
// =============================================================================
// 默认值 → YAML 文件 → 环境变量，逐层覆盖
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config hedgeflow 完整配置
type Config struct {
	// Conference 会议编排配置
	Conference ConferenceConfig `yaml:"conference"`
	// Agent 智能体默认配置
	Agent AgentConfig `yaml:"agent"`
	// Log 日志配置
	Log LogConfig `yaml:"log"`
	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
}

// ConferenceConfig 会议编排配置
type ConferenceConfig struct {
	// 最大讨论轮数
	MaxRounds int `yaml:"max_rounds"`
	// 自动驱动的沉淀等待
	SettleDelay time.Duration `yaml:"settle_delay"`
	// 提示词目录覆盖文件路径，空则仅用内置目录
	CatalogPath string `yaml:"catalog_path"`
}

// AgentConfig 智能体默认配置
type AgentConfig struct {
	// 模型名称
	Model string `yaml:"model"`
	// 温度参数
	Temperature float32 `yaml:"temperature"`
	// 最大 Token 数
	MaxTokens int `yaml:"max_tokens"`
	// 单次模型调用超时
	ModelTimeout time.Duration `yaml:"model_timeout"`
	// 每秒请求数限制
	RateLimit float64 `yaml:"rate_limit"`
	// 限流突发额度
	RateBurst int `yaml:"rate_burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug/info/warn/error
	Level string `yaml:"level"`
	// 开发模式（彩色控制台输出）
	Development bool `yaml:"development"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Conference: ConferenceConfig{
			MaxRounds:   3,
			SettleDelay: 5 * time.Second,
		},
		Agent: AgentConfig{
			Model:        "claude-3-sonnet",
			Temperature:  0.7,
			MaxTokens:    2048,
			ModelTimeout: 60 * time.Second,
			RateLimit:    2,
			RateBurst:    4,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "hedgeflow",
		},
	}
}

// Load 加载配置：默认值起步，path 非空时叠加 YAML 文件，最后应用环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 应用 HEDGEFLOW_* 环境变量覆盖
func (c *Config) applyEnv() {
	if v := os.Getenv("HEDGEFLOW_MODEL"); v != "" {
		c.Agent.Model = v
	}
	if v := os.Getenv("HEDGEFLOW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HEDGEFLOW_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Conference.MaxRounds = n
		}
	}
	if v := os.Getenv("HEDGEFLOW_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Conference.SettleDelay = d
		}
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Conference.MaxRounds <= 0 {
		return fmt.Errorf("conference.max_rounds must be positive, got %d", c.Conference.MaxRounds)
	}
	if c.Conference.SettleDelay < 0 {
		return fmt.Errorf("conference.settle_delay must not be negative")
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent.model must not be empty")
	}
	if c.Agent.ModelTimeout < 0 {
		return fmt.Errorf("agent.model_timeout must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level)
	}
	return nil
}

// BuildLogger 按日志配置构建 zap logger
func (c *Config) BuildLogger() (*zap.Logger, error) {
	var zc zap.Config
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc.Level = level
	return zc.Build()
}
