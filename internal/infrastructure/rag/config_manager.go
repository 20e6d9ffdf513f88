package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finsight/backend/internal/infrastructure/config"
)

// ConfigManager API 凭据配置管理器
// 配置以 JSON 形式持久化在数据目录，API Key 加密存储
type ConfigManager struct {
	configPath string
	encryptKey *EncryptionKey
}

// NewConfigManager 创建配置管理器
func NewConfigManager() (*ConfigManager, error) {
	dataDir := config.GetDataDir()
	configPath := filepath.Join(dataDir, "rag_config.json")

	encryptKey, err := NewEncryptionKey(filepath.Join(dataDir, ".rag_key"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption key: %w", err)
	}

	return &ConfigManager{
		configPath: configPath,
		encryptKey: encryptKey,
	}, nil
}

// APIConfig 外部 API 配置结构
type APIConfig struct {
	// Embedding API 配置
	EmbeddingAPI struct {
		URL    string `json:"url"`     // API URL
		APIKey string `json:"api_key"` // API Key（加密存储）
		Model  string `json:"model"`   // 模型名称
	} `json:"embedding_api"`

	// Chat Completion API 配置
	LLMAPI struct {
		URL           string `json:"url"`            // API URL
		APIKey        string `json:"api_key"`        // API Key（加密存储）
		PrimaryModel  string `json:"primary_model"`  // 主模型
		FallbackModel string `json:"fallback_model"` // 主模型失败时的备选模型
		RouterModel   string `json:"router_model"`   // 问题分类使用的轻量模型
	} `json:"llm_api"`
}

// ReadConfig 读取配置
func (c *ConfigManager) ReadConfig() (*APIConfig, error) {
	// 如果文件不存在，返回默认配置
	if _, err := os.Stat(c.configPath); os.IsNotExist(err) {
		return c.getDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg APIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// 解密 API Key，解密失败保持原值（可能是未加密的旧数据）
	if cfg.EmbeddingAPI.APIKey != "" {
		if decrypted, err := c.encryptKey.Decrypt(cfg.EmbeddingAPI.APIKey); err == nil {
			cfg.EmbeddingAPI.APIKey = decrypted
		}
	}
	if cfg.LLMAPI.APIKey != "" {
		if decrypted, err := c.encryptKey.Decrypt(cfg.LLMAPI.APIKey); err == nil {
			cfg.LLMAPI.APIKey = decrypted
		}
	}

	return &cfg, nil
}

// WriteConfig 写入配置
func (c *ConfigManager) WriteConfig(cfg *APIConfig) error {
	// 创建副本以避免修改原始配置
	cfgCopy := *cfg

	if cfgCopy.EmbeddingAPI.APIKey != "" {
		if encrypted, err := c.encryptKey.Encrypt(cfgCopy.EmbeddingAPI.APIKey); err == nil {
			cfgCopy.EmbeddingAPI.APIKey = encrypted
		}
	}
	if cfgCopy.LLMAPI.APIKey != "" {
		if encrypted, err := c.encryptKey.Encrypt(cfgCopy.LLMAPI.APIKey); err == nil {
			cfgCopy.LLMAPI.APIKey = encrypted
		}
	}

	// 确保目录存在
	dir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getDefaultConfig 获取默认配置
func (c *ConfigManager) getDefaultConfig() *APIConfig {
	cfg := &APIConfig{}
	cfg.EmbeddingAPI.URL = "https://api.openai.com/v1"
	cfg.EmbeddingAPI.Model = "text-embedding-3-small"
	cfg.LLMAPI.URL = "https://api.openai.com/v1"
	cfg.LLMAPI.PrimaryModel = "gpt-4-turbo-preview"
	cfg.LLMAPI.FallbackModel = "gpt-3.5-turbo"
	cfg.LLMAPI.RouterModel = "gpt-3.5-turbo"
	return cfg
}
