package handler

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/finsight/backend/internal/infrastructure/embedding"
	"github.com/finsight/backend/internal/infrastructure/llm"
	"github.com/finsight/backend/internal/infrastructure/log"
	infraRAG "github.com/finsight/backend/internal/infrastructure/rag"
	"github.com/finsight/backend/internal/interfaces/http/response"
)

// ConfigHandler API 配置处理器
type ConfigHandler struct {
	configManager *infraRAG.ConfigManager
	logger        *slog.Logger
}

// NewConfigHandler 创建配置处理器
func NewConfigHandler(configManager *infraRAG.ConfigManager) *ConfigHandler {
	return &ConfigHandler{
		configManager: configManager,
		logger:        log.NewModuleLogger("http", "config_handler"),
	}
}

// GetConfig 获取配置（不返回 API Key）
// GET /api/v1/config
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.configManager.ReadConfig()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 1001, err.Error())
		return
	}

	response.Success(c, gin.H{
		"embedding_api": gin.H{
			"url":   cfg.EmbeddingAPI.URL,
			"model": cfg.EmbeddingAPI.Model,
		},
		"llm_api": gin.H{
			"url":            cfg.LLMAPI.URL,
			"primary_model":  cfg.LLMAPI.PrimaryModel,
			"fallback_model": cfg.LLMAPI.FallbackModel,
			"router_model":   cfg.LLMAPI.RouterModel,
		},
	})
}

// UpdateConfigRequest 更新配置请求
// api_key 为空时保留已存储的值
type UpdateConfigRequest struct {
	EmbeddingAPI struct {
		URL    string `json:"url"`
		APIKey string `json:"api_key"`
		Model  string `json:"model"`
	} `json:"embedding_api"`
	LLMAPI struct {
		URL           string `json:"url"`
		APIKey        string `json:"api_key"`
		PrimaryModel  string `json:"primary_model"`
		FallbackModel string `json:"fallback_model"`
		RouterModel   string `json:"router_model"`
	} `json:"llm_api"`
}

// UpdateConfig 更新配置
// POST /api/v1/config
// 配置在下次启动时生效
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1002, err.Error())
		return
	}

	cfg, err := h.configManager.ReadConfig()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 1001, err.Error())
		return
	}

	if req.EmbeddingAPI.URL != "" {
		cfg.EmbeddingAPI.URL = req.EmbeddingAPI.URL
	}
	if req.EmbeddingAPI.APIKey != "" {
		cfg.EmbeddingAPI.APIKey = req.EmbeddingAPI.APIKey
	}
	if req.EmbeddingAPI.Model != "" {
		cfg.EmbeddingAPI.Model = req.EmbeddingAPI.Model
	}
	if req.LLMAPI.URL != "" {
		cfg.LLMAPI.URL = req.LLMAPI.URL
	}
	if req.LLMAPI.APIKey != "" {
		cfg.LLMAPI.APIKey = req.LLMAPI.APIKey
	}
	if req.LLMAPI.PrimaryModel != "" {
		cfg.LLMAPI.PrimaryModel = req.LLMAPI.PrimaryModel
	}
	if req.LLMAPI.FallbackModel != "" {
		cfg.LLMAPI.FallbackModel = req.LLMAPI.FallbackModel
	}
	if req.LLMAPI.RouterModel != "" {
		cfg.LLMAPI.RouterModel = req.LLMAPI.RouterModel
	}

	if err := h.configManager.WriteConfig(cfg); err != nil {
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	h.logger.Info("API config updated")
	response.Success(c, gin.H{
		"message": "config saved, restart to apply",
	})
}

// TestConnectionRequest 连通性测试请求
type TestConnectionRequest struct {
	URL    string `json:"url" binding:"required"`
	APIKey string `json:"api_key"`
	Model  string `json:"model" binding:"required"`
}

// TestEmbedding 测试向量化服务连通性
// POST /api/v1/config/test
func (h *ConfigHandler) TestEmbedding(c *gin.Context) {
	var req TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1002, err.Error())
		return
	}

	client := embedding.NewClient(req.URL, req.APIKey, req.Model)
	dim, err := client.GetVectorDimension(c.Request.Context())
	if err != nil {
		response.ErrorWithDetail(c, http.StatusBadGateway, 1004, "embedding connection test failed", err.Error())
		return
	}

	response.Success(c, gin.H{
		"message":   "connection ok",
		"dimension": dim,
	})
}

// TestLLM 测试对话模型连通性
// POST /api/v1/config/llm/test
func (h *ConfigHandler) TestLLM(c *gin.Context) {
	var req TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1002, err.Error())
		return
	}

	client := llm.NewClient(req.URL, req.APIKey)
	if err := client.TestConnection(c.Request.Context(), req.Model); err != nil {
		response.ErrorWithDetail(c, http.StatusBadGateway, 1005, "llm connection test failed", err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "connection ok",
		"model":   req.Model,
	})
}
