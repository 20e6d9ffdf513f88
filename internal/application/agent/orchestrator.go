package agent

import (
	"context"
	"log/slog"
	"time"

	domainagent "github.com/finsight/backend/internal/domain/agent"
	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/log"
)

// Orchestrator 多智能体问答编排器
// 状态机：route → (direct | decompose → execute → synthesize) → done
// 每经过一个阶段恰好追加一条 ReasoningStep 和一条 AgentCalls 记录
type Orchestrator struct {
	router      *Router
	decomposer  *Decomposer
	executor    *Executor
	synthesizer *Synthesizer
	runner      QueryRunner
	timeout     time.Duration
	logger      *slog.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(router *Router, decomposer *Decomposer, executor *Executor, synthesizer *Synthesizer, runner QueryRunner, cfg *config.AgentConfig) *Orchestrator {
	return &Orchestrator{
		router:      router,
		decomposer:  decomposer,
		executor:    executor,
		synthesizer: synthesizer,
		runner:      runner,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:      log.NewModuleLogger("agent", "orchestrator"),
	}
}

// Answer 回答问题
// 整个编排共享一个截止时间，超时后各阶段经由自身的降级路径收敛
func (o *Orchestrator) Answer(ctx context.Context, question, sessionID string) domainagent.Result {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	state := o.route(ctx, domainagent.NewState(question))

	if state.QueryType == domainagent.QueryTypeSimple {
		state = o.direct(ctx, state, sessionID)
	} else {
		state = o.decompose(ctx, state)
		state = o.execute(ctx, state, sessionID)
		state = o.synthesize(ctx, state)
	}

	o.logger.Info("Question answered",
		"query_type", string(state.QueryType),
		"agent_calls", len(state.AgentCalls),
		"success", state.Error == "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return buildResult(state)
}

// route 问题分类阶段
func (o *Orchestrator) route(ctx context.Context, state domainagent.State) domainagent.State {
	start := time.Now()
	classification := o.router.Classify(ctx, state.OriginalQuestion)

	state.QueryType = classification.QueryType
	return state.WithStep("router", domainagent.ReasoningStep{
		Agent:  "router",
		Action: "classify",
		Input: map[string]any{
			"question": state.OriginalQuestion,
		},
		Output: map[string]any{
			"query_type": string(classification.QueryType),
			"reasoning":  classification.Reasoning,
		},
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// direct 简单问题直接走检索问答
func (o *Orchestrator) direct(ctx context.Context, state domainagent.State, sessionID string) domainagent.State {
	start := time.Now()
	result, err := o.runner.Query(ctx, state.OriginalQuestion, sessionID)

	output := map[string]any{}
	if err != nil {
		state.Error = err.Error()
		output["error"] = err.Error()
	} else {
		state.FinalAnswer = result.Answer
		state.AllSources = dedupeSources([]domainrag.QueryResult{result})
		output["chunks_retrieved"] = result.ChunksRetrieved
		output["model_used"] = result.ModelUsed
	}

	return state.WithStep("rag_engine", domainagent.ReasoningStep{
		Agent:  "rag_engine",
		Action: "direct_query",
		Input: map[string]any{
			"question": state.OriginalQuestion,
		},
		Output:     output,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// decompose 复杂问题拆解阶段
func (o *Orchestrator) decompose(ctx context.Context, state domainagent.State) domainagent.State {
	start := time.Now()
	decomposition := o.decomposer.Decompose(ctx, state.OriginalQuestion)

	state.SubQueries = decomposition.SubQueries
	state.ExecutionOrder = decomposition.ExecutionOrder
	return state.WithStep("decomposer", domainagent.ReasoningStep{
		Agent:  "decomposer",
		Action: "decompose",
		Input: map[string]any{
			"question": state.OriginalQuestion,
		},
		Output: map[string]any{
			"sub_queries":     decomposition.SubQueries,
			"execution_order": string(decomposition.ExecutionOrder),
			"reasoning":       decomposition.Reasoning,
		},
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// execute 子问题执行阶段
func (o *Orchestrator) execute(ctx context.Context, state domainagent.State, sessionID string) domainagent.State {
	start := time.Now()
	state.SubResults = o.executor.Execute(ctx, state.SubQueries, state.ExecutionOrder, sessionID)

	succeeded := 0
	for _, r := range state.SubResults {
		if r.Success {
			succeeded++
		}
	}

	return state.WithStep("executor", domainagent.ReasoningStep{
		Agent:  "executor",
		Action: "execute_sub_queries",
		Input: map[string]any{
			"sub_queries":     state.SubQueries,
			"execution_order": string(state.ExecutionOrder),
		},
		Output: map[string]any{
			"results":   len(state.SubResults),
			"succeeded": succeeded,
		},
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// synthesize 答案合成阶段
func (o *Orchestrator) synthesize(ctx context.Context, state domainagent.State) domainagent.State {
	start := time.Now()
	answer, sources := o.synthesizer.Synthesize(ctx, state.OriginalQuestion, state.SubQueries, state.SubResults)

	state.FinalAnswer = answer
	state.AllSources = sources
	return state.WithStep("synthesizer", domainagent.ReasoningStep{
		Agent:  "synthesizer",
		Action: "synthesize",
		Input: map[string]any{
			"question":    state.OriginalQuestion,
			"sub_answers": len(state.SubResults),
		},
		Output: map[string]any{
			"answer_length": len(answer),
			"sources":       len(sources),
		},
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// buildResult 将终态转换为对外结果
func buildResult(state domainagent.State) domainagent.Result {
	sources := state.AllSources
	if sources == nil {
		sources = []domainrag.SourceCitation{}
	}

	return domainagent.Result{
		Question:       state.OriginalQuestion,
		Answer:         state.FinalAnswer,
		Sources:        sources,
		Success:        state.Error == "",
		QueryType:      state.QueryType,
		SubQueries:     state.SubQueries,
		ExecutionOrder: state.ExecutionOrder,
		SubResults:     state.SubResults,
		ReasoningSteps: state.ReasoningSteps,
		AgentCalls:     state.AgentCalls,
		Error:          state.Error,
	}
}
