package application

import (
	"github.com/google/wire"

	"github.com/finsight/backend/internal/application/agent"
	"github.com/finsight/backend/internal/application/rag"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	rag.ProviderSet,
	agent.ProviderSet,
)
