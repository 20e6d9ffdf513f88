package agent

import (
	"context"
	"log/slog"
	"sync"

	domainagent "github.com/finsight/backend/internal/domain/agent"
	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/log"
)

// maxParallelQueries 并行执行子问题的并发上限
const maxParallelQueries = 5

// QueryRunner 单问题检索问答接口
type QueryRunner interface {
	Query(ctx context.Context, question, sessionID string) (domainrag.QueryResult, error)
}

// Executor 子问题执行器
// 结果与子问题按下标严格对齐：N 个子问题必然产出 N 个结果，
// 单个子问题失败只影响自己对应的结果槽位
type Executor struct {
	runner QueryRunner
	logger *slog.Logger
}

// NewExecutor 创建子问题执行器
func NewExecutor(runner QueryRunner) *Executor {
	return &Executor{
		runner: runner,
		logger: log.NewModuleLogger("agent", "executor"),
	}
}

// Execute 执行全部子问题
func (e *Executor) Execute(ctx context.Context, subQueries []string, order domainagent.ExecutionOrder, sessionID string) []domainrag.QueryResult {
	if len(subQueries) == 0 {
		return []domainrag.QueryResult{}
	}

	results := make([]domainrag.QueryResult, len(subQueries))

	if order == domainagent.OrderSequential {
		for i, q := range subQueries {
			results[i] = e.runOne(ctx, q, sessionID)
		}
		return results
	}

	sem := make(chan struct{}, maxParallelQueries)
	var wg sync.WaitGroup
	for i, q := range subQueries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.runOne(ctx, q, sessionID)
		}(i, q)
	}
	wg.Wait()

	return results
}

// runOne 执行单个子问题，失败时转换为失败结果而非报错
func (e *Executor) runOne(ctx context.Context, question, sessionID string) domainrag.QueryResult {
	result, err := e.runner.Query(ctx, question, sessionID)
	if err != nil {
		e.logger.Warn("Sub-query failed",
			"question", question,
			"error", err,
		)
		return domainrag.QueryResult{
			Success:      false,
			Answer:       "Error: " + err.Error(),
			Sources:      []domainrag.SourceCitation{},
			ErrorMessage: err.Error(),
		}
	}
	return result
}
