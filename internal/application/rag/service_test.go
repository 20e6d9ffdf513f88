package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrag "github.com/finsight/backend/internal/domain/rag"
)

type stubChunkEmbedder struct {
	err   error
	calls int
}

func (s *stubChunkEmbedder) EmbedChunks(ctx context.Context, chunks []*domainrag.DocumentChunk) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	for _, c := range chunks {
		c.Embedding = []float32{0.1, 0.2, 0.3}
	}
	return nil
}

type stubChunkStore struct {
	upsertErr error
	deleteErr error
	count     uint64

	upserted []*domainrag.DocumentChunk
	deleted  []string
}

func (s *stubChunkStore) UpsertChunks(ctx context.Context, chunks []*domainrag.DocumentChunk) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, chunks...)
	return nil
}

func (s *stubChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *stubChunkStore) Count(ctx context.Context) (uint64, error) {
	return s.count, nil
}

func newTestService(t *testing.T, embedder *stubChunkEmbedder, store *stubChunkStore) *Service {
	t.Helper()
	chunker := newTestChunker(t, 200, 40)
	return NewService(chunker, embedder, store, nil)
}

func TestProcessDocument_Success(t *testing.T) {
	embedder := &stubChunkEmbedder{}
	store := &stubChunkStore{}
	svc := newTestService(t, embedder, store)

	result, err := svc.ProcessDocument(context.Background(), ProcessRequest{
		DocumentID:    "doc-1",
		SessionID:     "sess-1",
		ExtractedText: "The annual report covers revenue, costs and outlook for the year.",
		PageCount:     1,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, result.ChunksCreated, result.ChunksIndexed)
	assert.Greater(t, result.ChunksCreated, 0)
	assert.False(t, result.IndexedAt.IsZero())
	assert.Equal(t, 1, embedder.calls)
	assert.Len(t, store.upserted, result.ChunksIndexed)
}

func TestProcessDocument_GeneratesID(t *testing.T) {
	svc := newTestService(t, &stubChunkEmbedder{}, &stubChunkStore{})

	result, err := svc.ProcessDocument(context.Background(), ProcessRequest{
		ExtractedText: "Some text.",
		PageCount:     1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.DocumentID, "未提供文档 ID 时应自动生成")
}

func TestProcessDocument_EmptyText(t *testing.T) {
	embedder := &stubChunkEmbedder{}
	svc := newTestService(t, embedder, &stubChunkStore{})

	result, err := svc.ProcessDocument(context.Background(), ProcessRequest{
		DocumentID:    "doc-1",
		ExtractedText: "   ",
		PageCount:     1,
	})
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Equal(t, 0, embedder.calls, "分片失败后不应继续向量化")
}

func TestProcessDocument_EmbedFailure(t *testing.T) {
	embedder := &stubChunkEmbedder{err: fmt.Errorf("embedding api down")}
	store := &stubChunkStore{}
	svc := newTestService(t, embedder, store)

	result, err := svc.ProcessDocument(context.Background(), ProcessRequest{
		DocumentID:    "doc-1",
		ExtractedText: "Some text to index.",
		PageCount:     1,
	})
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "embedding api down")
	assert.Empty(t, store.upserted, "向量化失败后不应写入存储")
}

func TestProcessDocument_UpsertFailure(t *testing.T) {
	store := &stubChunkStore{upsertErr: fmt.Errorf("qdrant unavailable")}
	svc := newTestService(t, &stubChunkEmbedder{}, store)

	result, err := svc.ProcessDocument(context.Background(), ProcessRequest{
		DocumentID:    "doc-1",
		ExtractedText: "Some text to index.",
		PageCount:     1,
	})
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "qdrant unavailable")
}

func TestDeleteDocument(t *testing.T) {
	store := &stubChunkStore{}
	svc := newTestService(t, &stubChunkEmbedder{}, store)

	require.NoError(t, svc.DeleteDocument(context.Background(), "doc-1"))
	assert.Equal(t, []string{"doc-1"}, store.deleted)
}

func TestChunkCount(t *testing.T) {
	store := &stubChunkStore{count: 42}
	svc := newTestService(t, &stubChunkEmbedder{}, store)

	n, err := svc.ChunkCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
}
