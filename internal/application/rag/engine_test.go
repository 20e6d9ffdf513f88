package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/llm"
	"github.com/finsight/backend/internal/infrastructure/vector"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

type stubSearcher struct {
	hits       []domainrag.SearchHit
	err        error
	lastParams vector.SearchParams
}

func (s *stubSearcher) Search(ctx context.Context, queryVector []float32, params vector.SearchParams) ([]domainrag.SearchHit, error) {
	s.lastParams = params
	return s.hits, s.err
}

type stubGenerator struct {
	answer string
	model  string
	err    error
	calls  int
}

func (s *stubGenerator) ChatWithFallback(ctx context.Context, messages []llm.Message, opts llm.ChatOptions, models []string) (string, string, error) {
	s.calls++
	return s.answer, s.model, s.err
}

func testRAGConfig() *config.RAGConfig {
	return &config.RAGConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		TopK:         5,
		MinScore:     0.5,
	}
}

func testHit(documentID string, page int, content string, score float32) domainrag.SearchHit {
	return domainrag.SearchHit{
		ChunkID:     fmt.Sprintf("%s-p%d", documentID, page),
		DocumentID:  documentID,
		Content:     content,
		PageNumbers: []int{page},
		Score:       score,
	}
}

func TestQueryEngine_Answer(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &stubSearcher{hits: []domainrag.SearchHit{
		testHit("doc-1", 3, "Revenue was 42 million.", 0.91),
		testHit("doc-2", 7, "Costs were 10 million.", 0.82),
	}}
	gen := &stubGenerator{answer: "Revenue was 42 million [Page 3].", model: "gpt-4-turbo-preview"}

	engine := NewQueryEngine(embedder, searcher, gen, testRAGConfig(), []string{"gpt-4-turbo-preview", "gpt-3.5-turbo"})

	result, err := engine.Query(context.Background(), "What was the revenue?", "sess-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Revenue was 42 million [Page 3].", result.Answer)
	assert.Equal(t, 2, result.ChunksRetrieved)
	assert.Equal(t, "gpt-4-turbo-preview", result.ModelUsed)
	assert.GreaterOrEqual(t, result.QueryTime, 0.0)

	// 引用按检索排名排列
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "doc-1", result.Sources[0].DocumentID)
	assert.Equal(t, []int{3}, result.Sources[0].PageNumbers)
	assert.Equal(t, "doc-2", result.Sources[1].DocumentID)

	// 会话过滤参数透传
	assert.Equal(t, "sess-1", searcher.lastParams.SessionID)
	assert.Equal(t, 5, searcher.lastParams.TopK)
	assert.InDelta(t, 0.5, searcher.lastParams.MinScore, 1e-6)
}

func TestQueryEngine_NoHits(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1}}
	searcher := &stubSearcher{hits: nil}
	gen := &stubGenerator{answer: "should never be used"}

	engine := NewQueryEngine(embedder, searcher, gen, testRAGConfig(), []string{"gpt-4-turbo-preview"})

	result, err := engine.Query(context.Background(), "What is the meaning of life?", "")
	require.NoError(t, err)

	// 零命中：固定回答、成功状态、不调用生成模型
	assert.True(t, result.Success)
	assert.Equal(t, DeclineAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, result.ChunksRetrieved)
	assert.Equal(t, 0, gen.calls, "零命中时不应调用生成模型")
}

func TestQueryEngine_EmptyQuestion(t *testing.T) {
	engine := NewQueryEngine(&stubEmbedder{}, &stubSearcher{}, &stubGenerator{}, testRAGConfig(), nil)

	_, err := engine.Query(context.Background(), "   ", "")
	assert.Error(t, err)
}

func TestQueryEngine_StageErrors(t *testing.T) {
	t.Run("向量化失败", func(t *testing.T) {
		engine := NewQueryEngine(
			&stubEmbedder{err: fmt.Errorf("api unreachable")},
			&stubSearcher{}, &stubGenerator{}, testRAGConfig(), nil,
		)
		_, err := engine.Query(context.Background(), "q", "")
		var queryErr *domainrag.QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, "embed", queryErr.Stage)
	})

	t.Run("检索失败", func(t *testing.T) {
		engine := NewQueryEngine(
			&stubEmbedder{vector: []float32{0.1}},
			&stubSearcher{err: fmt.Errorf("qdrant down")},
			&stubGenerator{}, testRAGConfig(), nil,
		)
		_, err := engine.Query(context.Background(), "q", "")
		var queryErr *domainrag.QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, "search", queryErr.Stage)
	})

	t.Run("生成失败", func(t *testing.T) {
		engine := NewQueryEngine(
			&stubEmbedder{vector: []float32{0.1}},
			&stubSearcher{hits: []domainrag.SearchHit{testHit("doc-1", 1, "text", 0.9)}},
			&stubGenerator{err: fmt.Errorf("all models failed")},
			testRAGConfig(), []string{"gpt-4-turbo-preview"},
		)
		_, err := engine.Query(context.Background(), "q", "")
		var queryErr *domainrag.QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, "generate", queryErr.Stage)
	})

	t.Run("生成返回空回答", func(t *testing.T) {
		engine := NewQueryEngine(
			&stubEmbedder{vector: []float32{0.1}},
			&stubSearcher{hits: []domainrag.SearchHit{testHit("doc-1", 1, "text", 0.9)}},
			&stubGenerator{answer: "  "},
			testRAGConfig(), []string{"gpt-4-turbo-preview"},
		)
		_, err := engine.Query(context.Background(), "q", "")
		var queryErr *domainrag.QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, "generate", queryErr.Stage)
	})
}

func TestQueryEngine_SnippetTruncation(t *testing.T) {
	long := strings.Repeat("a", 500)
	embedder := &stubEmbedder{vector: []float32{0.1}}
	searcher := &stubSearcher{hits: []domainrag.SearchHit{testHit("doc-1", 2, long, 0.8)}}
	gen := &stubGenerator{answer: "answer", model: "gpt-3.5-turbo"}

	engine := NewQueryEngine(embedder, searcher, gen, testRAGConfig(), []string{"gpt-3.5-turbo"})

	result, err := engine.Query(context.Background(), "q", "")
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)

	snippet := result.Sources[0].Snippet
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.LessOrEqual(t, len(snippet), domainrag.SnippetMaxLen)
}

func TestBuildContext(t *testing.T) {
	hits := []domainrag.SearchHit{
		testHit("doc-1", 3, "First block.", 0.9),
		{ChunkID: "c2", DocumentID: "doc-1", Content: "Second block.", PageNumbers: []int{4, 5, 6}, Score: 0.8},
	}

	ctx := buildContext(hits)
	assert.Contains(t, ctx, "[Page 3] First block.")
	assert.Contains(t, ctx, "[Page 4-6] Second block.")
	assert.Contains(t, ctx, "\n\n")
}
