package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPageRange(t *testing.T) {
	assert.Equal(t, "Page 1", FormatPageRange(nil))
	assert.Equal(t, "Page 3", FormatPageRange([]int{3}))
	assert.Equal(t, "Page 3-5", FormatPageRange([]int{3, 4, 5}))
	assert.Equal(t, "Page 2-7", FormatPageRange([]int{7, 2}), "乱序页码取最小最大值")
}

func TestSourceCitation_Key(t *testing.T) {
	a := SourceCitation{DocumentID: "doc-1", PageNumbers: []int{3, 4}, Snippet: "x"}
	b := SourceCitation{DocumentID: "doc-1", PageNumbers: []int{3, 4}, Snippet: "y", Score: 0.9}
	c := SourceCitation{DocumentID: "doc-1", PageNumbers: []int{3}}
	d := SourceCitation{DocumentID: "doc-2", PageNumbers: []int{3, 4}}

	// 文档与页码相同即视为同一来源，摘要和分数不参与
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Key(), d.Key())
}

func TestNewCitation_SnippetTruncation(t *testing.T) {
	short := NewCitation(SearchHit{DocumentID: "doc-1", Content: "short", PageNumbers: []int{1}, Score: 0.8})
	assert.Equal(t, "short", short.Snippet)

	long := NewCitation(SearchHit{DocumentID: "doc-1", Content: strings.Repeat("a", 300), PageNumbers: []int{1}})
	assert.Len(t, long.Snippet, SnippetMaxLen)
	assert.True(t, strings.HasSuffix(long.Snippet, "..."))

	// 截断后总长不得超过上限
	exact := NewCitation(SearchHit{DocumentID: "doc-1", Content: strings.Repeat("b", SnippetMaxLen), PageNumbers: []int{1}})
	assert.Equal(t, strings.Repeat("b", SnippetMaxLen), exact.Snippet)
}

func TestChunkHelpers(t *testing.T) {
	chunk := DocumentChunk{PageNumbers: []int{2, 3}}
	assert.False(t, chunk.HasEmbedding())

	chunk.Embedding = []float32{0.1}
	assert.True(t, chunk.HasEmbedding())
}
