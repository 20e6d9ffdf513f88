package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrag "github.com/finsight/backend/internal/domain/rag"
)

// newEmbeddingServer 构建返回固定维度向量的 mock 服务
func newEmbeddingServer(t *testing.T, dim int, requestSizes *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if requestSizes != nil {
			*requestSizes = append(*requestSizes, len(req.Input))
		}

		resp := map[string]any{"model": req.Model}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i)
			data[i] = map[string]any{"embedding": vec, "index": i}
		}
		resp["data"] = data
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestBuildEmbeddingURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		expected string
	}{
		{"裸域名", "https://api.example.com", "https://api.example.com/v1/embeddings"},
		{"以 /v1 结尾", "https://api.example.com/v1", "https://api.example.com/v1/embeddings"},
		{"以 /v1/ 结尾", "https://api.example.com/v1/", "https://api.example.com/v1/embeddings"},
		{"完整路径", "https://api.example.com/v1/embeddings", "https://api.example.com/v1/embeddings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildEmbeddingURL(tt.baseURL))
		})
	}
}

func TestEmbedTexts_SingleBatch(t *testing.T) {
	server := newEmbeddingServer(t, 8, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	vectors, err := client.EmbedTexts(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 8)
	assert.Equal(t, float32(1), vectors[1][0], "向量应与输入按下标对齐")
}

func TestEmbedTexts_SplitsIntoBatches(t *testing.T) {
	var requestSizes []int
	server := newEmbeddingServer(t, 4, &requestSizes)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	// 250 条文本应拆为 100 + 100 + 50 三个批次
	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	vectors, err := client.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 250)
	assert.Equal(t, []int{100, 100, 50}, requestSizes)
}

func TestEmbedTexts_Empty(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key", "text-embedding-3-small")

	_, err := client.EmbedTexts(context.Background(), nil)
	assert.Error(t, err)
}

func TestEmbedTexts_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 第一次失败，第二次成功
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float32{0.1, 0.2}, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	vectors, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedTexts_FailsAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)

	var embErr *domainrag.EmbeddingError
	require.True(t, errors.As(err, &embErr), "应返回 EmbeddingError")
	assert.Equal(t, 0, embErr.BatchIndex)
	assert.Equal(t, MaxRetries, embErr.Attempts)
	assert.Equal(t, int32(MaxRetries), calls.Load())
}

func TestEmbedTexts_ShapeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 两条输入只返回一个向量
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1}, "index": 0},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	_, err := client.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestEmbedChunks_FillsInPlace(t *testing.T) {
	server := newEmbeddingServer(t, 4, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	chunks := []*domainrag.DocumentChunk{
		{ChunkID: "c1", Content: "first chunk"},
		{ChunkID: "c2", Content: "second chunk"},
	}

	require.NoError(t, client.EmbedChunks(context.Background(), chunks))
	assert.True(t, chunks[0].HasEmbedding())
	assert.True(t, chunks[1].HasEmbedding())
	assert.Equal(t, float32(1), chunks[1].Embedding[0])
}

func TestEmbedChunks_Empty(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key", "text-embedding-3-small")

	// 空列表是调用方错误，不能静默成功
	err := client.EmbedChunks(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty list of chunks")

	err = client.EmbedChunks(context.Background(), []*domainrag.DocumentChunk{})
	assert.Error(t, err)
}

func TestEmbedQuery_Empty(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key", "text-embedding-3-small")

	_, err := client.EmbedQuery(context.Background(), "")
	assert.Error(t, err)

	_, err = client.EmbedQuery(context.Background(), "   ")
	assert.Error(t, err)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "sk-1...wxyz", maskAPIKey("sk-1234567890wxyz"))
	assert.Equal(t, "***", maskAPIKey("short"))
}
