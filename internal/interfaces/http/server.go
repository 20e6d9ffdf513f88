package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/log"
	"github.com/finsight/backend/internal/interfaces/http/handler"
	"github.com/finsight/backend/internal/interfaces/http/middleware"
	"github.com/finsight/backend/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	ragHandler *handler.RAGHandler,
	configHandler *handler.ConfigHandler,
	mcpServer *mcp.MCPServer,
	serverConfig *config.ServerConfig,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 文档与问答
		api.POST("/documents", ragHandler.ProcessDocument)
		api.DELETE("/documents/:id", ragHandler.DeleteDocument)
		api.POST("/query", ragHandler.Query)

		// API 配置
		api.GET("/config", configHandler.GetConfig)
		api.POST("/config", configHandler.UpdateConfig)
		api.POST("/config/test", configHandler.TestEmbedding)
		api.POST("/config/llm/test", configHandler.TestLLM)
	}

	// 健康检查
	router.GET("/health", ragHandler.Health)

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: serverConfig.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
