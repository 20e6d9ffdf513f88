package rag

import (
	"fmt"
	"time"
)

// SnippetMaxLen 引用摘要的最大长度（字符）
const SnippetMaxLen = 200

// SearchHit 向量检索命中结果
type SearchHit struct {
	ChunkID     string  // 片段 ID
	DocumentID  string  // 所属文档 ID
	Content     string  // 片段文本
	PageNumbers []int   // 覆盖的页码
	ChunkIndex  int     // 片段索引
	Score       float32 // 相似度分数（cosine，越高越相关）
}

// SourceCitation 答案引用来源
// 值语义，(document_id, page_numbers) 相同视为同一来源
type SourceCitation struct {
	DocumentID  string  `json:"document_id"`
	PageNumbers []int   `json:"page_numbers"`
	Snippet     string  `json:"snippet"`
	Score       float32 `json:"relevance_score"`
}

// Key 去重键：同一文档的同一页码组合视为同一来源
func (s SourceCitation) Key() string {
	return fmt.Sprintf("%s|%v", s.DocumentID, s.PageNumbers)
}

// NewCitation 从检索命中构建引用，摘要截断后不超过 SnippetMaxLen
func NewCitation(hit SearchHit) SourceCitation {
	snippet := hit.Content
	if len(snippet) > SnippetMaxLen {
		snippet = snippet[:SnippetMaxLen-3] + "..."
	}
	return SourceCitation{
		DocumentID:  hit.DocumentID,
		PageNumbers: hit.PageNumbers,
		Snippet:     snippet,
		Score:       hit.Score,
	}
}

// QueryResult 一次问答（或子问答）的完整结果，构建后不再修改
type QueryResult struct {
	Success         bool             `json:"success"`
	Answer          string           `json:"answer"`
	Sources         []SourceCitation `json:"sources"`
	ChunksRetrieved int              `json:"chunks_retrieved"`
	QueryTime       float64          `json:"query_time_seconds"`
	ModelUsed       string           `json:"model_used,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// DocumentResult 文档入库结果
type DocumentResult struct {
	Success        bool      `json:"success"`
	DocumentID     string    `json:"document_id"`
	ChunksCreated  int       `json:"chunks_created"`
	ChunksIndexed  int       `json:"chunks_indexed"`
	ProcessingTime float64   `json:"processing_time_seconds"`
	IndexedAt      time.Time `json:"indexed_at"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// FormatPageRange 格式化页码列表
// 单页输出 "Page N"，多页输出 "Page N-M"（N 为最小页，M 为最大页）
func FormatPageRange(pages []int) string {
	if len(pages) == 0 {
		return "Page 1"
	}
	minPage, maxPage := pages[0], pages[0]
	for _, p := range pages[1:] {
		if p < minPage {
			minPage = p
		}
		if p > maxPage {
			maxPage = p
		}
	}
	if minPage == maxPage {
		return fmt.Sprintf("Page %d", minPage)
	}
	return fmt.Sprintf("Page %d-%d", minPage, maxPage)
}
