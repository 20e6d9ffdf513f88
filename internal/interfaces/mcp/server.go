package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	appAgent "github.com/finsight/backend/internal/application/agent"
	appRAG "github.com/finsight/backend/internal/application/rag"
)

// MCPServer MCP 服务器
// 通过 HTTP /mcp/sse 端点对外提供工具，生命周期由 HTTP 服务器统一管理
type MCPServer struct {
	server       *mcp.Server
	handler      http.Handler
	service      *appRAG.Service
	orchestrator *appAgent.Orchestrator
}

// NewServer 创建 MCP 服务器
func NewServer(service *appRAG.Service, orchestrator *appAgent.Orchestrator) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "finsight-backend",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:       server,
		service:      service,
		orchestrator: orchestrator,
	}

	// 注册工具：ask_documents
	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_documents",
		Description: `Ask a question about the indexed documents. Complex questions are automatically decomposed into sub-questions and answered in combination.

Parameters:
- question (string, required): Natural language question about the document content.
- session_id (string, optional): Restrict the search to documents uploaded in one session.

Returns: answer with page-level source citations, query type (simple/complex), sub-questions if decomposed, and the agent reasoning trace.`,
	}, mcpServer.askDocumentsTool)

	// 注册工具：get_service_status
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_service_status",
		Description: "Get the status of the document QA service, including the number of indexed chunks. No parameters required.",
	}, mcpServer.getServiceStatusTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Stop 停止服务器
// HTTP/SSE 模式下由 HTTP 服务器统一管理生命周期
func (s *MCPServer) Stop() error {
	return nil
}
