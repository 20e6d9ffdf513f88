package handler

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	appAgent "github.com/finsight/backend/internal/application/agent"
	appRAG "github.com/finsight/backend/internal/application/rag"
	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/log"
)

// RAGHandler 文档问答处理器
type RAGHandler struct {
	service      *appRAG.Service
	orchestrator *appAgent.Orchestrator
	logger       *slog.Logger
}

// NewRAGHandler 创建文档问答处理器
func NewRAGHandler(service *appRAG.Service, orchestrator *appAgent.Orchestrator) *RAGHandler {
	return &RAGHandler{
		service:      service,
		orchestrator: orchestrator,
		logger:       log.NewModuleLogger("http", "rag_handler"),
	}
}

// statusForError 按失败阶段映射 HTTP 状态码
// 分片失败是文档内容问题（422），向量化/检索/生成失败是上游依赖问题（502）
func statusForError(err error) int {
	var chunkErr *domainrag.ChunkingError
	if errors.As(err, &chunkErr) {
		return http.StatusUnprocessableEntity
	}

	var embErr *domainrag.EmbeddingError
	var storeErr *domainrag.VectorStoreError
	var queryErr *domainrag.QueryError
	if errors.As(err, &embErr) || errors.As(err, &storeErr) || errors.As(err, &queryErr) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// ProcessDocumentRequest 文档入库请求
type ProcessDocumentRequest struct {
	DocumentID    string `json:"document_id,omitempty"` // 空则自动生成
	Filename      string `json:"filename,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	ExtractedText string `json:"extracted_text" binding:"required"`
	PageCount     int    `json:"page_count,omitempty"`
}

// ProcessDocument 文档入库
// POST /api/v1/documents
func (h *RAGHandler) ProcessDocument(c *gin.Context) {
	var req ProcessDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Document received",
		"filename", req.Filename,
		"page_count", req.PageCount,
	)

	result, err := h.service.ProcessDocument(c.Request.Context(), appRAG.ProcessRequest{
		DocumentID:    req.DocumentID,
		SessionID:     req.SessionID,
		ExtractedText: req.ExtractedText,
		PageCount:     req.PageCount,
	})
	if err != nil {
		c.JSON(statusForError(err), result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// QueryRequest 问答请求
type QueryRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
	UseAgents *bool  `json:"use_agents,omitempty"` // 默认开启多智能体编排
}

// Query 文档问答
// POST /api/v1/query
// 默认走多智能体编排，use_agents=false 时直接检索问答
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.UseAgents != nil && !*req.UseAgents {
		result, err := h.service.Query(c.Request.Context(), req.Question, req.SessionID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	result := h.orchestrator.Answer(c.Request.Context(), req.Question, req.SessionID)
	c.JSON(http.StatusOK, result)
}

// DeleteDocument 删除文档（幂等）
// DELETE /api/v1/documents/:id
func (h *RAGHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document id is required"})
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), documentID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "document deleted",
		"document_id": documentID,
	})
}

// Health 健康检查
// GET /health
func (h *RAGHandler) Health(c *gin.Context) {
	count, err := h.service.ChunkCount(c.Request.Context())
	if err != nil {
		// 向量库不可达时服务降级但进程存活
		c.JSON(http.StatusOK, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"chunks": count,
	})
}
