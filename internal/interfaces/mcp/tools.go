package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	domainrag "github.com/finsight/backend/internal/domain/rag"
)

// AskDocumentsInput 文档问答工具输入
type AskDocumentsInput struct {
	Question  string `json:"question" jsonschema:"Natural language question about the indexed documents (required)"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Optional session ID to restrict the search scope"`
}

// AskDocumentsOutput 文档问答工具输出
type AskDocumentsOutput struct {
	Answer     string           `json:"answer" jsonschema:"Answer synthesized from the documents"`
	Success    bool             `json:"success" jsonschema:"Whether the question was answered"`
	QueryType  string           `json:"query_type" jsonschema:"simple or complex"`
	SubQueries []string         `json:"sub_queries,omitempty" jsonschema:"Sub-questions if the question was decomposed"`
	Sources    []SourceCitation `json:"sources" jsonschema:"Page-level source citations"`
	AgentCalls []string         `json:"agent_calls" jsonschema:"Agents invoked while answering, in order"`
	Error      string           `json:"error,omitempty" jsonschema:"Error message if the question could not be answered"`
}

// SourceCitation 工具输出中的引用（精简版）
type SourceCitation struct {
	DocumentID string  `json:"document_id" jsonschema:"Document the citation points to"`
	Pages      string  `json:"pages" jsonschema:"Page range, e.g. 'Page 3' or 'Page 3-5'"`
	Snippet    string  `json:"snippet" jsonschema:"Short excerpt from the cited chunk"`
	Score      float32 `json:"score" jsonschema:"Retrieval relevance score"`
}

// askDocumentsTool 文档问答工具实现
func (s *MCPServer) askDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskDocumentsInput,
) (*mcp.CallToolResult, AskDocumentsOutput, error) {
	output := AskDocumentsOutput{
		Sources: []SourceCitation{},
	}

	if input.Question == "" {
		return nil, output, fmt.Errorf("question is required")
	}

	result := s.orchestrator.Answer(ctx, input.Question, input.SessionID)

	output.Answer = result.Answer
	output.Success = result.Success
	output.QueryType = string(result.QueryType)
	output.SubQueries = result.SubQueries
	output.AgentCalls = result.AgentCalls
	output.Error = result.Error
	output.Sources = toToolCitations(result.Sources)

	return nil, output, nil
}

// GetServiceStatusInput 服务状态工具输入（无参数）
type GetServiceStatusInput struct{}

// GetServiceStatusOutput 服务状态工具输出
type GetServiceStatusOutput struct {
	Status        string `json:"status" jsonschema:"ok or degraded"`
	IndexedChunks uint64 `json:"indexed_chunks" jsonschema:"Number of chunks in the vector store"`
	Detail        string `json:"detail,omitempty" jsonschema:"Degradation detail if the vector store is unreachable"`
}

// getServiceStatusTool 服务状态工具实现
func (s *MCPServer) getServiceStatusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetServiceStatusInput,
) (*mcp.CallToolResult, GetServiceStatusOutput, error) {
	count, err := s.service.ChunkCount(ctx)
	if err != nil {
		return nil, GetServiceStatusOutput{
			Status: "degraded",
			Detail: err.Error(),
		}, nil
	}

	return nil, GetServiceStatusOutput{
		Status:        "ok",
		IndexedChunks: count,
	}, nil
}

// toToolCitations 转换引用为工具输出格式
func toToolCitations(sources []domainrag.SourceCitation) []SourceCitation {
	out := make([]SourceCitation, 0, len(sources))
	for _, src := range sources {
		out = append(out, SourceCitation{
			DocumentID: src.DocumentID,
			Pages:      domainrag.FormatPageRange(src.PageNumbers),
			Snippet:    src.Snippet,
			Score:      src.Score,
		})
	}
	return out
}
