package rag

import "fmt"

// ChunkingError 文档分片失败
type ChunkingError struct {
	DocumentID string
	Err        error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *ChunkingError) Unwrap() error { return e.Err }

// EmbeddingError 向量化失败（重试耗尽或响应形状不合法）
type EmbeddingError struct {
	BatchIndex int
	Attempts   int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed on batch %d after %d attempts: %v", e.BatchIndex, e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// VectorStoreError 向量库操作失败
type VectorStoreError struct {
	Op  string // upsert / search / delete / ensure
	Err error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// QueryError 问答流程失败（检索或生成阶段）
type QueryError struct {
	Stage string // embed / search / generate
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed at %s stage: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
