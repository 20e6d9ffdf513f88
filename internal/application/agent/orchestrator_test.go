package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagent "github.com/finsight/backend/internal/domain/agent"
	domainrag "github.com/finsight/backend/internal/domain/rag"
)

// failingRunner 所有问题都失败
type failingRunner struct{}

func (failingRunner) Query(ctx context.Context, question, sessionID string) (domainrag.QueryResult, error) {
	return domainrag.QueryResult{}, fmt.Errorf("engine unavailable")
}

func newTestOrchestrator(routerChatter, decomposerChatter *stubChatter, gen *stubGenerator, runner QueryRunner) *Orchestrator {
	cfg := testAgentConfig()
	return NewOrchestrator(
		NewRouter(routerChatter, "gpt-3.5-turbo"),
		NewDecomposer(decomposerChatter, "gpt-3.5-turbo", cfg),
		NewExecutor(runner),
		NewSynthesizer(gen, []string{"gpt-4-turbo-preview"}),
		runner,
		cfg,
	)
}

func TestOrchestrator_SimpleQuestion(t *testing.T) {
	routerChatter := &stubChatter{content: `{"query_type": "simple", "reasoning": "single fact"}`}
	decomposerChatter := &stubChatter{}
	gen := &stubGenerator{}
	runner := &stubRunner{}

	o := newTestOrchestrator(routerChatter, decomposerChatter, gen, runner)
	result := o.Answer(context.Background(), "What was the revenue?", "sess-1")

	assert.True(t, result.Success)
	assert.Equal(t, domainagent.QueryTypeSimple, result.QueryType)
	assert.Equal(t, "answer to What was the revenue?", result.Answer)

	// 简单路径只经过 route 和 direct 两个阶段
	assert.Equal(t, []string{"router", "rag_engine"}, result.AgentCalls)
	require.Len(t, result.ReasoningSteps, 2)
	assert.Equal(t, "classify", result.ReasoningSteps[0].Action)
	assert.Equal(t, "direct_query", result.ReasoningSteps[1].Action)

	// 拆解与合成均未被调用
	assert.Equal(t, 0, decomposerChatter.calls)
	assert.Equal(t, 0, gen.calls)
	assert.Empty(t, result.SubQueries)
}

func TestOrchestrator_ComplexQuestion(t *testing.T) {
	routerChatter := &stubChatter{content: `{"query_type": "complex", "reasoning": "two aspects"}`}
	decomposerChatter := &stubChatter{content: `{"sub_queries": ["What was revenue?", "What were costs?"], "execution_order": "parallel", "reasoning": "independent"}`}
	gen := &stubGenerator{answer: "Revenue was 42M and costs were 10M.", model: "gpt-4-turbo-preview"}
	runner := &stubRunner{}

	o := newTestOrchestrator(routerChatter, decomposerChatter, gen, runner)
	result := o.Answer(context.Background(), "Summarize revenue and costs", "")

	assert.True(t, result.Success)
	assert.Equal(t, domainagent.QueryTypeComplex, result.QueryType)
	assert.Equal(t, "Revenue was 42M and costs were 10M.", result.Answer)

	// 完整复杂路径：route → decompose → execute → synthesize
	assert.Equal(t, []string{"router", "decomposer", "executor", "synthesizer"}, result.AgentCalls)
	require.Len(t, result.ReasoningSteps, 4)

	// 子结果与子问题按下标对齐
	require.Len(t, result.SubQueries, 2)
	require.Len(t, result.SubResults, 2)
	assert.Equal(t, "answer to What was revenue?", result.SubResults[0].Answer)
	assert.Equal(t, "answer to What were costs?", result.SubResults[1].Answer)
	assert.Equal(t, domainagent.OrderParallel, result.ExecutionOrder)
}

func TestOrchestrator_DirectQueryFailure(t *testing.T) {
	routerChatter := &stubChatter{content: `{"query_type": "simple", "reasoning": ""}`}

	o := newTestOrchestrator(routerChatter, &stubChatter{}, &stubGenerator{}, failingRunner{})
	result := o.Answer(context.Background(), "q", "")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "engine unavailable")
	require.Len(t, result.ReasoningSteps, 2)
	assert.Contains(t, result.ReasoningSteps[1].Output, "error")
}

func TestOrchestrator_RouterFailureDegradesToDirect(t *testing.T) {
	// 分类失败降级为 simple，走直接路径
	routerChatter := &stubChatter{err: fmt.Errorf("router api down")}
	runner := &stubRunner{}

	o := newTestOrchestrator(routerChatter, &stubChatter{}, &stubGenerator{}, runner)
	result := o.Answer(context.Background(), "q", "")

	assert.True(t, result.Success)
	assert.Equal(t, domainagent.QueryTypeSimple, result.QueryType)
	assert.Equal(t, []string{"router", "rag_engine"}, result.AgentCalls)
}

func TestOrchestrator_ComplexWithSubQueryFailures(t *testing.T) {
	routerChatter := &stubChatter{content: `{"query_type": "complex", "reasoning": ""}`}
	decomposerChatter := &stubChatter{content: `{"sub_queries": ["q1", "fail-q2"], "execution_order": "sequential", "reasoning": ""}`}
	// 合成也失败，降级为拼接
	gen := &stubGenerator{err: fmt.Errorf("all models failed")}
	runner := &stubRunner{}

	o := newTestOrchestrator(routerChatter, decomposerChatter, gen, runner)
	result := o.Answer(context.Background(), "q", "")

	// 部分子问题失败不影响整体成功状态
	assert.True(t, result.Success)
	require.Len(t, result.SubResults, 2)
	assert.True(t, result.SubResults[0].Success)
	assert.False(t, result.SubResults[1].Success)

	assert.Contains(t, result.Answer, "**q1**")
	assert.Contains(t, result.Answer, "Error: ")
	assert.Equal(t, domainagent.OrderSequential, result.ExecutionOrder)
}
