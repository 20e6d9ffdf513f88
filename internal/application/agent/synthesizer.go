package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainrag "github.com/finsight/backend/internal/domain/rag"
	"github.com/finsight/backend/internal/infrastructure/llm"
	"github.com/finsight/backend/internal/infrastructure/log"
)

const (
	synthesisTemperature = 0.3
	synthesisMaxTokens   = 1000
)

// synthesisPromptTemplate 答案合成指令
// 只整合子回答，不得重新推导或引入新信息
const synthesisPromptTemplate = `Combine the sub-answers below into one coherent answer to the original question.

Original question: %s

Sub-answers:
%s

Rules:
- Integrate the sub-answers; do not re-derive them or add information that is not in them.
- Keep the page citations (e.g. [Page 3]) that appear in the sub-answers.
- If a sub-answer reports an error, work with the remaining ones.`

// Generator 带备选模型的文本生成接口
type Generator interface {
	ChatWithFallback(ctx context.Context, messages []llm.Message, opts llm.ChatOptions, models []string) (string, string, error)
}

// Synthesizer 答案合成器
// 合成失败时降级为按子问题分节拼接，引用照常去重保留
type Synthesizer struct {
	genAI  Generator
	models []string
	logger *slog.Logger
}

// NewSynthesizer 创建答案合成器
func NewSynthesizer(genAI Generator, models []string) *Synthesizer {
	return &Synthesizer{
		genAI:  genAI,
		models: models,
		logger: log.NewModuleLogger("agent", "synthesizer"),
	}
}

// Synthesize 将子问题结果合成为最终回答
// 返回的引用已按首次出现顺序去重
func (s *Synthesizer) Synthesize(ctx context.Context, question string, subQueries []string, subResults []domainrag.QueryResult) (string, []domainrag.SourceCitation) {
	sources := dedupeSources(subResults)

	answer, modelUsed, err := s.genAI.ChatWithFallback(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(synthesisPromptTemplate, question, formatSubAnswers(subQueries, subResults))},
	}, llm.ChatOptions{
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	}, s.models)
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.Warn("Synthesis failed, falling back to concatenation",
			"error", err,
		)
		return concatenateAnswers(subQueries, subResults), sources
	}

	s.logger.Info("Answer synthesized",
		"sub_answers", len(subResults),
		"model", modelUsed,
	)
	return answer, sources
}

// formatSubAnswers 组装子问答对供合成模型阅读
func formatSubAnswers(subQueries []string, subResults []domainrag.QueryResult) string {
	blocks := make([]string, len(subResults))
	for i, r := range subResults {
		question := ""
		if i < len(subQueries) {
			question = subQueries[i]
		}
		pages := citedPages(r.Sources)
		if pages != "" {
			blocks[i] = fmt.Sprintf("%d. Q: %s\n   A: %s\n   Pages: %s", i+1, question, r.Answer, pages)
		} else {
			blocks[i] = fmt.Sprintf("%d. Q: %s\n   A: %s", i+1, question, r.Answer)
		}
	}
	return strings.Join(blocks, "\n")
}

// citedPages 列出一组引用涉及的页码范围
func citedPages(sources []domainrag.SourceCitation) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		parts = append(parts, domainrag.FormatPageRange(src.PageNumbers))
	}
	return strings.Join(parts, ", ")
}

// concatenateAnswers 合成降级：按子问题分节拼接子回答
func concatenateAnswers(subQueries []string, subResults []domainrag.QueryResult) string {
	sections := make([]string, len(subResults))
	for i, r := range subResults {
		question := ""
		if i < len(subQueries) {
			question = subQueries[i]
		}
		sections[i] = fmt.Sprintf("**%s**\n%s", question, r.Answer)
	}
	return strings.Join(sections, "\n\n")
}

// dedupeSources 汇总全部子结果的引用并去重，保留首次出现的条目
func dedupeSources(subResults []domainrag.QueryResult) []domainrag.SourceCitation {
	seen := make(map[string]struct{})
	deduped := make([]domainrag.SourceCitation, 0)
	for _, r := range subResults {
		for _, src := range r.Sources {
			key := src.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			deduped = append(deduped, src)
		}
	}
	return deduped
}
