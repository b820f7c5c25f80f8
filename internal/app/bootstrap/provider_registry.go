package bootstrap

import (
	"sabio/internal/adapter/provider/llm/openai"
	"sabio/internal/platform/config"
	applog "sabio/internal/platform/log"
	"sabio/internal/provider"
)

// RegisterLLMProviders 按配置注册路由和回答两个 LLM 后端。
// 缺少 API Key 的后端跳过注册，对应 Agent 会在取用时失败并走降级路径
func RegisterLLMProviders(registry *provider.Registry, cfg config.LLMConfig) {
	for _, backend := range []config.LLMBackend{cfg.Router, cfg.Answer} {
		if backend.APIKey == "" {
			applog.Warnf("⚠️  No API key for LLM backend %s, skipping", backend.Name)
			continue
		}
		p := openai.New(openai.Config{
			Name:    backend.Name,
			APIKey:  backend.APIKey,
			BaseURL: backend.BaseURL,
		})
		registry.Register(p)
		applog.Infof("✅ Registered LLM provider: %s (base: %s)", p.Name(), backend.BaseURL)
	}
}
