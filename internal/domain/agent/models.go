package agent

import (
	"github.com/finsight/backend/internal/domain/rag"
)

// QueryType 问题分类
type QueryType string

const (
	QueryTypeSimple  QueryType = "simple"  // 单一事实查询，直接走检索问答
	QueryTypeComplex QueryType = "complex" // 多方面问题，需要拆解
)

// ExecutionOrder 子问题执行顺序
type ExecutionOrder string

const (
	OrderParallel   ExecutionOrder = "parallel"
	OrderSequential ExecutionOrder = "sequential"
)

// Classification 问题分类结果
type Classification struct {
	QueryType QueryType `json:"query_type"`
	Reasoning string    `json:"reasoning"`
}

// Decomposition 问题拆解结果
type Decomposition struct {
	SubQueries     []string       `json:"sub_queries"`
	ExecutionOrder ExecutionOrder `json:"execution_order"`
	Reasoning      string         `json:"reasoning"`
}

// ReasoningStep 一次编排阶段调用的审计记录，只做观测，不影响控制流
type ReasoningStep struct {
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Input      map[string]any `json:"input"`
	Output     map[string]any `json:"output"`
	DurationMs int64          `json:"duration_ms"`
}

// State 编排状态机的累积状态
// 每个阶段接收上一阶段的状态值并返回追加后的新值，不原地修改
type State struct {
	OriginalQuestion string
	QueryType        QueryType
	SubQueries       []string
	ExecutionOrder   ExecutionOrder
	SubResults       []rag.QueryResult // 与 SubQueries 按下标对齐
	FinalAnswer      string
	AllSources       []rag.SourceCitation
	ReasoningSteps   []ReasoningStep
	AgentCalls       []string
	Error            string
}

// NewState 创建初始状态
func NewState(question string) State {
	return State{
		OriginalQuestion: question,
	}
}

// WithStep 返回追加一条审计记录后的新状态，原状态不变
// 每个访问过的状态机状态恰好对应一条 ReasoningStep 和一条 AgentCalls 记录
func (s State) WithStep(agentCall string, step ReasoningStep) State {
	steps := make([]ReasoningStep, 0, len(s.ReasoningSteps)+1)
	steps = append(steps, s.ReasoningSteps...)
	steps = append(steps, step)

	calls := make([]string, 0, len(s.AgentCalls)+1)
	calls = append(calls, s.AgentCalls...)
	calls = append(calls, agentCall)

	s.ReasoningSteps = steps
	s.AgentCalls = calls
	return s
}

// Result 多智能体问答的最终结果
type Result struct {
	Question       string               `json:"question"`
	Answer         string               `json:"answer"`
	Sources        []rag.SourceCitation `json:"sources"`
	Success        bool                 `json:"success"`
	QueryType      QueryType            `json:"query_type"`
	SubQueries     []string             `json:"sub_queries,omitempty"`
	ExecutionOrder ExecutionOrder       `json:"execution_order,omitempty"`
	SubResults     []rag.QueryResult    `json:"sub_results,omitempty"`
	ReasoningSteps []ReasoningStep      `json:"reasoning_steps"`
	AgentCalls     []string             `json:"agent_calls"`
	Error          string               `json:"error,omitempty"`
}
