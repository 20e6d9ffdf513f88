package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/llm"
	"github.com/finsight/backend/internal/infrastructure/log"
	"github.com/finsight/backend/internal/infrastructure/vector"
)

// DeclineAnswer 检索无命中时的固定回答
const DeclineAnswer = "I don't have enough information in the documents to answer that question."

// answerPromptTemplate 生成回答的指令模板
// 禁止模型使用上下文之外的知识，信息不足时必须使用固定回答
const answerPromptTemplate = `You are a document analysis assistant. Answer the question using ONLY the context below.

Context:
%s

Question: %s

Rules:
- Use only information from the context. Do not use outside knowledge or extrapolate.
- If the context does not contain enough information, reply exactly: "%s"
- Cite the page references given in the context (e.g. [Page 3]) where relevant.`

// QueryEmbedder 查询向量化接口
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher 片段检索接口
type ChunkSearcher interface {
	Search(ctx context.Context, queryVector []float32, params vector.SearchParams) ([]domainrag.SearchHit, error)
}

// Generator 文本生成接口
type Generator interface {
	ChatWithFallback(ctx context.Context, messages []llm.Message, opts llm.ChatOptions, models []string) (string, string, error)
}

// QueryEngine 检索问答引擎
// embed → search → 组装上下文 → 生成，零命中时直接返回固定回答，不调用生成
type QueryEngine struct {
	embedder QueryEmbedder
	searcher ChunkSearcher
	genAI    Generator

	topK      int
	minScore  float32
	models    []string // 主模型在前，后续为备选
	maxTokens int
	logger    *slog.Logger
}

// NewQueryEngine 创建检索问答引擎
func NewQueryEngine(embedder QueryEmbedder, searcher ChunkSearcher, genAI Generator, cfg *config.RAGConfig, models []string) *QueryEngine {
	return &QueryEngine{
		embedder:  embedder,
		searcher:  searcher,
		genAI:     genAI,
		topK:      cfg.TopK,
		minScore:  cfg.MinScore,
		models:    models,
		maxTokens: 2000,
		logger:    log.NewModuleLogger("rag", "query_engine"),
	}
}

// Query 回答问题并返回带引用的结果
// sessionID 非空时限定检索范围
func (e *QueryEngine) Query(ctx context.Context, question, sessionID string) (domainrag.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return domainrag.QueryResult{}, fmt.Errorf("question cannot be empty")
	}

	start := time.Now()

	// 1. 向量化问题
	queryVector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return domainrag.QueryResult{}, &domainrag.QueryError{Stage: "embed", Err: err}
	}

	// 2. 检索相关片段
	hits, err := e.searcher.Search(ctx, queryVector, vector.SearchParams{
		TopK:      e.topK,
		MinScore:  e.minScore,
		SessionID: sessionID,
	})
	if err != nil {
		return domainrag.QueryResult{}, &domainrag.QueryError{Stage: "search", Err: err}
	}

	// 3. 零命中直接返回固定回答，不调用生成模型
	if len(hits) == 0 {
		e.logger.Info("No relevant chunks found",
			"question", question,
		)
		return domainrag.QueryResult{
			Success:         true,
			Answer:          DeclineAnswer,
			Sources:         []domainrag.SourceCitation{},
			ChunksRetrieved: 0,
			QueryTime:       time.Since(start).Seconds(),
		}, nil
	}

	// 4. 组装上下文并生成回答
	prompt := fmt.Sprintf(answerPromptTemplate, buildContext(hits), question, DeclineAnswer)

	answer, modelUsed, err := e.genAI.ChatWithFallback(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.ChatOptions{
		Temperature: 0.0,
		MaxTokens:   e.maxTokens,
	}, e.models)
	if err != nil {
		return domainrag.QueryResult{}, &domainrag.QueryError{Stage: "generate", Err: err}
	}
	if strings.TrimSpace(answer) == "" {
		return domainrag.QueryResult{}, &domainrag.QueryError{Stage: "generate", Err: fmt.Errorf("model returned empty answer")}
	}

	// 5. 按检索排名构建引用
	sources := make([]domainrag.SourceCitation, len(hits))
	for i, hit := range hits {
		sources[i] = domainrag.NewCitation(hit)
	}

	e.logger.Info("Query answered",
		"chunks_retrieved", len(hits),
		"model", modelUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return domainrag.QueryResult{
		Success:         true,
		Answer:          answer,
		Sources:         sources,
		ChunksRetrieved: len(hits),
		QueryTime:       time.Since(start).Seconds(),
		ModelUsed:       modelUsed,
	}, nil
}

// buildContext 将命中片段组装为上下文块，每段以页码引用开头
func buildContext(hits []domainrag.SearchHit) string {
	blocks := make([]string, len(hits))
	for i, hit := range hits {
		blocks[i] = fmt.Sprintf("[%s] %s", domainrag.FormatPageRange(hit.PageNumbers), hit.Content)
	}
	return strings.Join(blocks, "\n\n")
}
