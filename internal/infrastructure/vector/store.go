package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/qdrant/go-client/qdrant"

	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/log"
)

// Store 文档片段向量库
// 单一集合，cosine 距离，payload 携带片段元数据
type Store struct {
	client     *qdrant.Client
	collection string
	vectorDim  uint64
	logger     *slog.Logger
}

// NewStore 创建向量库并确保集合存在
func NewStore(cfg *config.VectorConfig) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
		vectorDim:  uint64(cfg.VectorDim),
		logger:     log.NewModuleLogger("vector", "store"),
	}

	if err := s.EnsureCollection(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Close 关闭连接
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureCollection 确保集合存在（不存在则创建）
func (s *Store) EnsureCollection(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return &domainrag.VectorStoreError{Op: "ensure", Err: fmt.Errorf("failed to list collections: %w", err)}
	}

	for _, name := range existing {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorDim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &domainrag.VectorStoreError{Op: "ensure", Err: fmt.Errorf("failed to create collection %s: %w", s.collection, err)}
	}

	s.logger.Info("Collection created",
		"collection", s.collection,
		"vector_dim", s.vectorDim,
	)

	return nil
}

// UpsertChunks 写入文档片段
// 任一片段缺少向量立即失败，不做部分写入
func (s *Store) UpsertChunks(ctx context.Context, chunks []*domainrag.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points, err := buildChunkPoints(chunks)
	if err != nil {
		return &domainrag.VectorStoreError{Op: "upsert", Err: err}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return &domainrag.VectorStoreError{Op: "upsert", Err: err}
	}

	s.logger.Info("Chunks upserted",
		"collection", s.collection,
		"count", len(points),
	)

	return nil
}

// SearchParams 检索参数
type SearchParams struct {
	TopK      int
	MinScore  float32 // 低于此分数的命中被丢弃
	SessionID string  // 非空时限定会话范围
}

// Search 按查询向量检索片段，结果按分数降序
func (s *Store) Search(ctx context.Context, queryVector []float32, params SearchParams) ([]domainrag.SearchHit, error) {
	if len(queryVector) == 0 {
		return nil, &domainrag.VectorStoreError{Op: "search", Err: fmt.Errorf("query vector is empty")}
	}
	if params.TopK <= 0 {
		params.TopK = 5
	}

	limit := uint64(params.TopK)
	scoreThreshold := params.MinScore

	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		ScoreThreshold: &scoreThreshold,
		Filter:         buildScopeFilter(params.SessionID),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &domainrag.VectorStoreError{Op: "search", Err: err}
	}

	hits := make([]domainrag.SearchHit, 0, len(resp))
	for _, point := range resp {
		if hit, ok := hitFromScoredPoint(point); ok {
			hits = append(hits, hit)
		}
	}

	s.logger.Debug("Search completed",
		"hits", len(hits),
		"top_k", params.TopK,
		"min_score", params.MinScore,
	)

	return hits, nil
}

// DeleteByDocument 删除文档的所有片段
// 文档不存在时也返回成功（幂等）
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("document_id", documentID),
					},
				},
			},
		},
	})
	if err != nil {
		return &domainrag.VectorStoreError{Op: "delete", Err: err}
	}

	s.logger.Info("Document chunks deleted",
		"document_id", documentID,
	)

	return nil
}

// Count 统计集合中的片段数
func (s *Store) Count(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, &domainrag.VectorStoreError{Op: "count", Err: err}
	}
	return count, nil
}

// sanitizeUTF8 清理字符串中的无效 UTF-8 字符
// Qdrant 客户端要求所有字符串必须是有效的 UTF-8
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// buildChunkPoints 构建 Qdrant 点，缺少向量的片段立即报错
func buildChunkPoints(chunks []*domainrag.DocumentChunk) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, len(chunks))

	for i, chunk := range chunks {
		if !chunk.HasEmbedding() {
			return nil, fmt.Errorf("chunk %s (index %d) has no embedding", chunk.ChunkID, chunk.ChunkIndex)
		}

		pagesJSON, _ := json.Marshal(chunk.PageNumbers)

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"chunk_id":     chunk.ChunkID,
				"document_id":  chunk.DocumentID,
				"session_id":   chunk.SessionID,
				"chunk_index":  int64(chunk.ChunkIndex),
				"page_numbers": string(pagesJSON),
				"content":      sanitizeUTF8(chunk.Content),
				"token_count":  int64(chunk.TokenCount),
			}),
		}
	}

	return points, nil
}

// buildScopeFilter 构建会话范围过滤条件，空 sessionID 不过滤
func buildScopeFilter(sessionID string) *qdrant.Filter {
	if sessionID == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("session_id", sessionID),
		},
	}
}

// hitFromScoredPoint 将 Qdrant 命中转换为领域结果
func hitFromScoredPoint(point *qdrant.ScoredPoint) (domainrag.SearchHit, bool) {
	payload := point.GetPayload()
	if payload == nil {
		return domainrag.SearchHit{}, false
	}

	hit := domainrag.SearchHit{
		Score: point.GetScore(),
	}

	if val, ok := payload["chunk_id"]; ok {
		hit.ChunkID = extractStringValue(val)
	}
	if val, ok := payload["document_id"]; ok {
		hit.DocumentID = extractStringValue(val)
	}
	if val, ok := payload["content"]; ok {
		hit.Content = extractStringValue(val)
	}
	if val, ok := payload["chunk_index"]; ok {
		hit.ChunkIndex = int(extractIntValue(val))
	}
	if val, ok := payload["page_numbers"]; ok {
		pagesStr := extractStringValue(val)
		if pagesStr != "" {
			var pages []int
			if err := json.Unmarshal([]byte(pagesStr), &pages); err == nil {
				hit.PageNumbers = pages
			}
		}
	}
	if len(hit.PageNumbers) == 0 {
		hit.PageNumbers = []int{1}
	}

	return hit, true
}

// extractStringValue 从 qdrant.Value 提取字符串值
func extractStringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

// extractIntValue 从 qdrant.Value 提取整数值
func extractIntValue(val *qdrant.Value) int64 {
	if val == nil {
		return 0
	}
	if intVal := val.GetIntegerValue(); intVal != 0 {
		return intVal
	}
	if dblVal := val.GetDoubleValue(); dblVal != 0 {
		return int64(dblVal)
	}
	return 0
}
