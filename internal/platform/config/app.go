package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"sabio/internal/domain/knowledge"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string           `json:"log_level"`
	LogFormat string           `json:"log_format"`
	Server    ServerConfig     `json:"server"`
	Database  DatabaseConfig   `json:"database"`
	Redis     RedisConfig      `json:"redis"`
	LLM       LLMConfig        `json:"llm"`
	Embedding EmbeddingConfig  `json:"embedding"`
	Knowledge knowledge.Config `json:"knowledge"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	URL                    string `json:"url"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

type RedisConfig struct {
	URL string `json:"url"`
	// 引擎写入 Redis 的 key 统一加此前缀，Keys 枚举时剥除。
	KeyPrefix string `json:"key_prefix"`
}

// LLMConfig 双后端 LLM 配置：路由用轻量模型，回答用更强模型。
// 两者都是 OpenAI 兼容 chat-completions 服务。
type LLMConfig struct {
	Router LLMBackend `json:"router"`
	Answer LLMBackend `json:"answer"`
}

// LLMBackend 单个 OpenAI 兼容后端（OpenRouter、Groq 等）。
type LLMBackend struct {
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// EmbeddingConfig 向量化服务配置（HuggingFace feature-extraction 兼容）。
type EmbeddingConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	Dims    int    `json:"dims"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	kbCfg := knowledge.DefaultConfig()
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                3000,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		Database: DatabaseConfig{
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
		Redis: RedisConfig{
			URL:       "redis://localhost:6379/0",
			KeyPrefix: "cache:",
		},
		LLM: LLMConfig{
			Router: LLMBackend{
				Name:    "openrouter",
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "mistralai/mistral-7b-instruct",
			},
			Answer: LLMBackend{
				Name:    "groq",
				BaseURL: "https://api.groq.com/openai/v1",
				Model:   "llama-3.1-8b-instant",
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api-inference.huggingface.co",
			Model:   "sentence-transformers/all-MiniLM-L6-v2",
			Dims:    384,
		},
		Knowledge: *kbCfg,
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
func Load() (*AppConfig, error) {
	// .env 非必需，加载失败忽略
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)

	applyString("DATABASE_URL", &c.Database.URL)
	applyInt("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	applyInt("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	applyInt("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetimeSeconds)

	applyString("REDIS_URL", &c.Redis.URL)
	applyString("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)

	applyString("OPENROUTER_API_KEY", &c.LLM.Router.APIKey)
	applyString("LLM_ROUTER_BASE_URL", &c.LLM.Router.BaseURL)
	applyString("LLM_ROUTER_MODEL", &c.LLM.Router.Model)
	applyString("GROQ_API_KEY", &c.LLM.Answer.APIKey)
	applyString("LLM_ANSWER_BASE_URL", &c.LLM.Answer.BaseURL)
	applyString("LLM_ANSWER_MODEL", &c.LLM.Answer.Model)

	applyString("HUGGINGFACE_API_KEY", &c.Embedding.APIKey)
	applyString("EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	applyString("EMBEDDING_MODEL", &c.Embedding.Model)
	applyInt("EMBEDDING_DIMS", &c.Embedding.Dims)

	c.Knowledge.ApplyEnv()
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if strings.TrimSpace(c.Knowledge.BaseURL) == "" {
		return fmt.Errorf("knowledge base URL is required")
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
