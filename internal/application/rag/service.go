package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/log"
)

// ChunkEmbedder 片段向量化接口
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []*domainrag.DocumentChunk) error
}

// ChunkStore 片段存储接口
type ChunkStore interface {
	UpsertChunks(ctx context.Context, chunks []*domainrag.DocumentChunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	Count(ctx context.Context) (uint64, error)
}

// Service 文档问答服务
// 入库：分片 → 向量化 → 写入向量库；问答委托给 QueryEngine
type Service struct {
	chunker  *Chunker
	embedder ChunkEmbedder
	store    ChunkStore
	engine   *QueryEngine
	logger   *slog.Logger
}

// NewService 创建文档问答服务
func NewService(chunker *Chunker, embedder ChunkEmbedder, store ChunkStore, engine *QueryEngine) *Service {
	return &Service{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		engine:   engine,
		logger:   log.NewModuleLogger("rag", "service"),
	}
}

// ProcessRequest 文档入库请求
type ProcessRequest struct {
	DocumentID    string // 空则自动生成
	SessionID     string
	ExtractedText string
	PageCount     int
}

// ProcessDocument 将提取文本入库并建立向量索引
func (s *Service) ProcessDocument(ctx context.Context, req ProcessRequest) (domainrag.DocumentResult, error) {
	start := time.Now()

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.New().String()
	}

	fail := func(err error) (domainrag.DocumentResult, error) {
		s.logger.Error("Document processing failed",
			"document_id", documentID,
			"error", err,
		)
		return domainrag.DocumentResult{
			Success:        false,
			DocumentID:     documentID,
			ProcessingTime: time.Since(start).Seconds(),
			ErrorMessage:   err.Error(),
		}, err
	}

	// 1. 分片
	chunks, err := s.chunker.ChunkDocument(documentID, req.SessionID, req.ExtractedText, req.PageCount)
	if err != nil {
		return fail(err)
	}

	// 2. 向量化
	if err := s.embedder.EmbedChunks(ctx, chunks); err != nil {
		return fail(err)
	}

	// 3. 写入向量库
	if err := s.store.UpsertChunks(ctx, chunks); err != nil {
		return fail(err)
	}

	s.logger.Info("Document processed",
		"document_id", documentID,
		"chunks", len(chunks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return domainrag.DocumentResult{
		Success:        true,
		DocumentID:     documentID,
		ChunksCreated:  len(chunks),
		ChunksIndexed:  len(chunks),
		ProcessingTime: time.Since(start).Seconds(),
		IndexedAt:      time.Now(),
	}, nil
}

// Query 回答问题
func (s *Service) Query(ctx context.Context, question, sessionID string) (domainrag.QueryResult, error) {
	return s.engine.Query(ctx, question, sessionID)
}

// DeleteDocument 删除文档的所有片段（幂等）
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	return s.store.DeleteByDocument(ctx, documentID)
}

// ChunkCount 集合中的片段总数
func (s *Service) ChunkCount(ctx context.Context) (uint64, error) {
	return s.store.Count(ctx)
}
