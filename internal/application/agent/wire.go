package agent

import (
	"github.com/google/wire"

	appRAG "github.com/finsight/backend/internal/application/rag"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/llm"
	infraRAG "github.com/finsight/backend/internal/infrastructure/rag"
)

// ProvideRouter 用轻量路由模型构建分类器
func ProvideRouter(chatter Chatter, api *infraRAG.APIConfig) *Router {
	return NewRouter(chatter, api.LLMAPI.RouterModel)
}

// ProvideDecomposer 拆解需要完整的推理能力，使用主模型
func ProvideDecomposer(chatter Chatter, api *infraRAG.APIConfig, cfg *config.AgentConfig) *Decomposer {
	return NewDecomposer(chatter, api.LLMAPI.PrimaryModel, cfg)
}

// ProvideSynthesizer 合成器使用生成模型列表
func ProvideSynthesizer(genAI Generator, models []string) *Synthesizer {
	return NewSynthesizer(genAI, models)
}

// ProviderSet Agent 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideRouter,
	ProvideDecomposer,
	NewExecutor,
	ProvideSynthesizer,
	NewOrchestrator,
	wire.Bind(new(Chatter), new(*llm.Client)),
	wire.Bind(new(Generator), new(*llm.Client)),
	wire.Bind(new(QueryRunner), new(*appRAG.Service)),
)
