package llm

import (
	"github.com/google/wire"

	infraRAG "github.com/finsight/backend/internal/infrastructure/rag"
)

// NewClientFromConfig 从持久化配置构建对话客户端
func NewClientFromConfig(api *infraRAG.APIConfig) *Client {
	return NewClient(api.LLMAPI.URL, api.LLMAPI.APIKey)
}

// ProviderSet LLM ProviderSet
var ProviderSet = wire.NewSet(
	NewClientFromConfig,
)
