package rag

// DocumentChunk 文档片段模型
// 表示一段连续的文档文本，是向量索引与检索的最小单位
type DocumentChunk struct {
	// 基础标识
	ChunkID    string // UUID，同时作为 Qdrant point_id
	DocumentID string // 所属文档 ID
	SessionID  string // 会话 ID（空表示全局可见）
	ChunkIndex int    // 在文档中的顺序索引

	// 核心内容
	Content     string // 片段文本
	PageNumbers []int  // 覆盖的页码（升序，至少一页）

	// 字符区间（基于原始提取文本，[CharStart, CharEnd)）
	CharStart int
	CharEnd   int

	// 索引信息
	TokenCount int       // tiktoken 统计的 token 数
	Embedding  []float32 // 向量（Embedder 填充前为 nil）
}

// HasEmbedding 检查是否已填充向量
func (c *DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// PageRange 格式化页码范围，如 "Page 3" 或 "Page 3-5"
func (c *DocumentChunk) PageRange() string {
	return FormatPageRange(c.PageNumbers)
}
