package rag

import "github.com/google/wire"

// ProvideAPIConfig 读取持久化的 API 配置，供客户端构造使用
func ProvideAPIConfig(cm *ConfigManager) (*APIConfig, error) {
	return cm.ReadConfig()
}

// ProviderSet RAG 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewConfigManager,
	ProvideAPIConfig,
)
