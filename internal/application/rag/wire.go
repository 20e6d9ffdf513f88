package rag

import (
	"github.com/google/wire"

	"github.com/finsight/backend/internal/infrastructure/embedding"
	"github.com/finsight/backend/internal/infrastructure/llm"
	infraRAG "github.com/finsight/backend/internal/infrastructure/rag"
	"github.com/finsight/backend/internal/infrastructure/vector"
)

// NewGenerationModels 生成模型列表，主模型在前、备选模型在后
func NewGenerationModels(api *infraRAG.APIConfig) []string {
	models := []string{api.LLMAPI.PrimaryModel}
	if api.LLMAPI.FallbackModel != "" && api.LLMAPI.FallbackModel != api.LLMAPI.PrimaryModel {
		models = append(models, api.LLMAPI.FallbackModel)
	}
	return models
}

// ProviderSet RAG 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewChunker,
	NewGenerationModels,
	NewQueryEngine,
	NewService,
	wire.Bind(new(QueryEmbedder), new(*embedding.Client)),
	wire.Bind(new(ChunkEmbedder), new(*embedding.Client)),
	wire.Bind(new(ChunkSearcher), new(*vector.Store)),
	wire.Bind(new(ChunkStore), new(*vector.Store)),
	wire.Bind(new(Generator), new(*llm.Client)),
)
