package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	domainagent "github.com/finsight/backend/internal/domain/agent"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/llm"
	"github.com/finsight/backend/internal/infrastructure/log"
)

const decomposerMaxTokens = 500

// decomposerPromptTemplate 问题拆解指令，要求模型只输出 JSON
const decomposerPromptTemplate = `Break the complex question below into 2-%d self-contained sub-questions for a document QA system.

- Each sub-question must be answerable on its own from the documents.
- Use "sequential" only when later sub-questions depend on earlier answers; otherwise use "parallel".

Question: %s

Respond with JSON only:
{"sub_queries": ["..."], "execution_order": "parallel" or "sequential", "reasoning": "<one sentence>"}`

// Decomposer 复杂问题拆解器
// 任何失败都降级为单条原问题并行执行，从不报错
type Decomposer struct {
	llm           Chatter
	model         string
	maxSubQueries int
	logger        *slog.Logger
}

// NewDecomposer 创建问题拆解器
func NewDecomposer(chatter Chatter, model string, cfg *config.AgentConfig) *Decomposer {
	return &Decomposer{
		llm:           chatter,
		model:         model,
		maxSubQueries: cfg.MaxSubQueries,
		logger:        log.NewModuleLogger("agent", "decomposer"),
	}
}

// Decompose 将复杂问题拆为子问题
func (d *Decomposer) Decompose(ctx context.Context, question string) domainagent.Decomposition {
	fallback := func(reason string) domainagent.Decomposition {
		return domainagent.Decomposition{
			SubQueries:     []string{question},
			ExecutionOrder: domainagent.OrderParallel,
			Reasoning:      reason,
		}
	}

	content, err := d.llm.Chat(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(decomposerPromptTemplate, d.maxSubQueries, question)},
	}, llm.ChatOptions{
		Model:       d.model,
		Temperature: 0.0,
		MaxTokens:   decomposerMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		d.logger.Warn("Decomposer call failed, falling back to original question",
			"error", err,
		)
		return fallback(fmt.Sprintf("decomposition failed (%v), using original question", err))
	}

	var parsed domainagent.Decomposition
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		d.logger.Warn("Decomposer returned invalid JSON, falling back to original question",
			"content", content,
			"error", err,
		)
		return fallback("decomposition response was not valid JSON, using original question")
	}

	// 过滤空子问题
	subQueries := make([]string, 0, len(parsed.SubQueries))
	for _, q := range parsed.SubQueries {
		if q != "" {
			subQueries = append(subQueries, q)
		}
	}
	if len(subQueries) == 0 {
		return fallback("decomposition produced no sub-questions, using original question")
	}

	// 超出上限时截断
	if len(subQueries) > d.maxSubQueries {
		d.logger.Warn("Decomposer exceeded sub-query limit, truncating",
			"count", len(subQueries),
			"limit", d.maxSubQueries,
		)
		subQueries = subQueries[:d.maxSubQueries]
	}
	parsed.SubQueries = subQueries

	// 未知执行顺序强制并行
	if parsed.ExecutionOrder != domainagent.OrderParallel && parsed.ExecutionOrder != domainagent.OrderSequential {
		d.logger.Warn("Decomposer returned unknown execution order, coercing to parallel",
			"execution_order", string(parsed.ExecutionOrder),
		)
		parsed.ExecutionOrder = domainagent.OrderParallel
	}

	return parsed
}
