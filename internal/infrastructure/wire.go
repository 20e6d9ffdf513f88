package infrastructure

import (
	"github.com/google/wire"

	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/embedding"
	"github.com/finsight/backend/internal/infrastructure/llm"
	infraRAG "github.com/finsight/backend/internal/infrastructure/rag"
	"github.com/finsight/backend/internal/infrastructure/vector"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	infraRAG.ProviderSet,
	embedding.ProviderSet,
	llm.ProviderSet,
	vector.ProviderSet,
)
