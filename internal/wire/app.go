package wire

import (
	"log/slog"

	applog "github.com/finsight/backend/internal/infrastructure/log"
	"github.com/finsight/backend/internal/infrastructure/vector"
	"github.com/finsight/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer  *interfaces.HTTPServer
	MCPServer   *interfaces.MCPServer
	vectorStore *vector.Store
	logger      *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	vectorStore *vector.Store,
) *App {
	return &App{
		HTTPServer:  httpServer,
		MCPServer:   mcpServer,
		vectorStore: vectorStore,
		logger:      applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting FinSight backend application")

	// 启动 HTTP 服务器（goroutine）
	// MCP 服务器通过 HTTP Handler 提供服务，已注册 /mcp/sse 端点
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("FinSight backend application started successfully")
	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping FinSight backend application")

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}
	if err := a.MCPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop MCP server",
			"error", err,
		)
		return err
	}

	// 关闭向量库连接
	if a.vectorStore != nil {
		if err := a.vectorStore.Close(); err != nil {
			a.logger.Error("Failed to close vector store",
				"error", err,
			)
			return err
		}
	}

	a.logger.Info("FinSight backend application stopped successfully")
	return nil
}
