package embedding

import (
	"github.com/google/wire"

	infraRAG "github.com/finsight/backend/internal/infrastructure/rag"
)

// NewClientFromConfig 从持久化配置构建向量化客户端
func NewClientFromConfig(api *infraRAG.APIConfig) *Client {
	return NewClient(api.EmbeddingAPI.URL, api.EmbeddingAPI.APIKey, api.EmbeddingAPI.Model)
}

// ProviderSet Embedding ProviderSet
var ProviderSet = wire.NewSet(
	NewClientFromConfig,
)
