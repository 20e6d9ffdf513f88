package rag

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/config"
	"github.com/finsight/backend/internal/infrastructure/log"
	"github.com/finsight/backend/internal/infrastructure/tokenizer"
)

// defaultSeparators 递归分片的分隔符优先级
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker 文档分片器
// 递归按分隔符切分文本，分隔符保留在片段尾部并全程携带字符偏移，
// 因此所有片段区间的并集恰好覆盖整个原文
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	counter      *tokenizer.Counter
	logger       *slog.Logger
}

// NewChunker 创建分片器
func NewChunker(cfg *config.RAGConfig) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk_size), got %d", cfg.ChunkOverlap)
	}

	counter, err := tokenizer.GetCounter()
	if err != nil {
		return nil, fmt.Errorf("failed to init token counter: %w", err)
	}

	return &Chunker{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		counter:      counter,
		logger:       log.NewModuleLogger("rag", "chunker"),
	}, nil
}

// piece 带起始偏移的文本片段，text == 原文[start : start+len(text)]
type piece struct {
	text  string
	start int
}

func (p piece) end() int { return p.start + len(p.text) }

// ChunkDocument 将提取文本切分为带页码归属的片段
func (c *Chunker) ChunkDocument(documentID, sessionID, text string, pageCount int) ([]*domainrag.DocumentChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domainrag.ChunkingError{
			DocumentID: documentID,
			Err:        fmt.Errorf("document text is empty or whitespace-only"),
		}
	}
	if pageCount < 1 {
		pageCount = 1
	}

	pieces := c.splitPieces(text, 0, defaultSeparators)
	pageSpans := buildPageSpans(text, pageCount)

	chunks := make([]*domainrag.DocumentChunk, 0, len(pieces))
	for i, p := range pieces {
		chunk := &domainrag.DocumentChunk{
			ChunkID:     uuid.New().String(),
			DocumentID:  documentID,
			SessionID:   sessionID,
			ChunkIndex:  i,
			Content:     p.text,
			PageNumbers: pagesForSpan(p.start, p.end(), pageSpans),
			CharStart:   p.start,
			CharEnd:     p.end(),
			TokenCount:  c.counter.CountTokens(p.text),
		}
		chunks = append(chunks, chunk)
	}

	c.logger.Info("Document chunked",
		"document_id", documentID,
		"chunk_count", len(chunks),
		"page_count", pageCount,
		"text_length", len(text),
	)

	return chunks, nil
}

// splitPieces 递归切分文本
// 选取首个在文本中出现的分隔符切分；超长片段用后续分隔符继续切，
// 所有分隔符都用尽后退化为定长硬切
func (c *Chunker) splitPieces(text string, base int, separators []string) []piece {
	sep := ""
	var rest []string
	for i, s := range separators {
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var splits []piece
	if sep == "" {
		splits = []piece{{text: text, start: base}}
	} else {
		splits = splitKeepSeparator(text, base, sep)
	}

	var finals []piece
	var good []piece
	for _, p := range splits {
		if len(p.text) <= c.chunkSize {
			good = append(good, p)
			continue
		}
		// 先合并已积累的短片段，再处理超长片段
		if len(good) > 0 {
			finals = append(finals, c.mergePieces(good)...)
			good = nil
		}
		if len(rest) == 0 {
			finals = append(finals, c.hardSplit(p)...)
		} else {
			finals = append(finals, c.splitPieces(p.text, p.start, rest)...)
		}
	}
	if len(good) > 0 {
		finals = append(finals, c.mergePieces(good)...)
	}

	return finals
}

// splitKeepSeparator 按分隔符切分，分隔符保留在前一个片段尾部
func splitKeepSeparator(text string, base int, sep string) []piece {
	parts := strings.Split(text, sep)
	pieces := make([]piece, 0, len(parts))
	pos := 0
	for i, part := range parts {
		s := part
		if i < len(parts)-1 {
			s = part + sep
		}
		if s != "" {
			pieces = append(pieces, piece{text: s, start: base + pos})
		}
		pos += len(s)
	}
	return pieces
}

// mergePieces 将相邻短片段合并到目标长度，片段间保持 chunkOverlap 重叠
// 合并的片段在原文中连续，因此合并结果的区间依然精确
func (c *Chunker) mergePieces(pieces []piece) []piece {
	var chunks []piece
	var current []piece
	total := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		var sb strings.Builder
		for _, p := range current {
			sb.WriteString(p.text)
		}
		chunks = append(chunks, piece{text: sb.String(), start: current[0].start})
	}

	for _, p := range pieces {
		l := len(p.text)
		if total+l > c.chunkSize && len(current) > 0 {
			flush()
			// 从头部弹出，直到剩余部分不超过重叠长度
			for total > c.chunkOverlap || (total+l > c.chunkSize && total > 0) {
				total -= len(current[0].text)
				current = current[1:]
			}
		}
		current = append(current, p)
		total += l
	}
	flush()

	return chunks
}

// hardSplit 定长切分（带重叠），用于没有任何分隔符的超长片段
func (c *Chunker) hardSplit(p piece) []piece {
	step := c.chunkSize - c.chunkOverlap
	var out []piece
	for off := 0; off < len(p.text); off += step {
		end := off + c.chunkSize
		if end >= len(p.text) {
			out = append(out, piece{text: p.text[off:], start: p.start + off})
			break
		}
		out = append(out, piece{text: p.text[off:end], start: p.start + off})
	}
	return out
}

// pageSpan 页的字符区间 [start, end)
type pageSpan struct {
	start int
	end   int
}

// buildPageSpans 构建每一页的字符区间
// 文本按 "\n\n" 切分后段数与页数一致时按段落划页，否则按比例均分
func buildPageSpans(text string, pageCount int) []pageSpan {
	if pageCount <= 1 {
		return []pageSpan{{start: 0, end: len(text)}}
	}

	segments := strings.Split(text, "\n\n")
	if len(segments) == pageCount {
		spans := make([]pageSpan, pageCount)
		pos := 0
		for i, seg := range segments {
			end := pos + len(seg)
			if i < pageCount-1 {
				// 页分隔符归属前一页
				end += 2
			}
			spans[i] = pageSpan{start: pos, end: end}
			pos = end
		}
		spans[pageCount-1].end = len(text)
		return spans
	}

	// 段数与页数不一致，按长度比例划分
	spans := make([]pageSpan, pageCount)
	for i := 0; i < pageCount; i++ {
		spans[i] = pageSpan{
			start: len(text) * i / pageCount,
			end:   len(text) * (i + 1) / pageCount,
		}
	}
	return spans
}

// pagesForSpan 计算片段覆盖的页码（1 起）
// 判定规则：char_start < page_end 且 char_end > page_start
func pagesForSpan(start, end int, pageSpans []pageSpan) []int {
	var pages []int
	for i, p := range pageSpans {
		if start < p.end && end > p.start {
			pages = append(pages, i+1)
		}
	}
	if len(pages) == 0 {
		pages = []int{1}
	}
	return pages
}
