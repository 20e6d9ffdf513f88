package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	domainagent "github.com/finsight/backend/internal/domain/agent"
	"github.com/finsight/backend/internal/infrastructure/llm"
	"github.com/finsight/backend/internal/infrastructure/log"
)

const routerMaxTokens = 200

// routerPromptTemplate 问题分类指令，要求模型只输出 JSON
const routerPromptTemplate = `Classify the user question for a document QA system.

- "simple": a single factual question answerable by one retrieval pass.
- "complex": a question with multiple aspects, comparisons, or that requires combining several lookups.

Question: %s

Respond with JSON only: {"query_type": "simple" or "complex", "reasoning": "<one sentence>"}`

// Chatter 单模型对话接口
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error)
}

// Router 问题分类器
// 任何失败（调用失败、JSON 解析失败、取值越界）都降级为 simple，从不报错
type Router struct {
	llm    Chatter
	model  string
	logger *slog.Logger
}

// NewRouter 创建问题分类器
func NewRouter(chatter Chatter, model string) *Router {
	return &Router{
		llm:    chatter,
		model:  model,
		logger: log.NewModuleLogger("agent", "router"),
	}
}

// Classify 判定问题类型
func (r *Router) Classify(ctx context.Context, question string) domainagent.Classification {
	content, err := r.llm.Chat(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(routerPromptTemplate, question)},
	}, llm.ChatOptions{
		Model:       r.model,
		Temperature: 0.0,
		MaxTokens:   routerMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		r.logger.Warn("Router call failed, defaulting to simple",
			"error", err,
		)
		return domainagent.Classification{
			QueryType: domainagent.QueryTypeSimple,
			Reasoning: fmt.Sprintf("classification failed (%v), defaulting to simple", err),
		}
	}

	var parsed domainagent.Classification
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		r.logger.Warn("Router returned invalid JSON, defaulting to simple",
			"content", content,
			"error", err,
		)
		return domainagent.Classification{
			QueryType: domainagent.QueryTypeSimple,
			Reasoning: "classification response was not valid JSON, defaulting to simple",
		}
	}

	if parsed.QueryType != domainagent.QueryTypeSimple && parsed.QueryType != domainagent.QueryTypeComplex {
		r.logger.Warn("Router returned unknown query type, defaulting to simple",
			"query_type", string(parsed.QueryType),
		)
		return domainagent.Classification{
			QueryType: domainagent.QueryTypeSimple,
			Reasoning: fmt.Sprintf("unknown query type %q, defaulting to simple", parsed.QueryType),
		}
	}

	return parsed
}
