package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter 使用 tiktoken 精确计算 Token 数量
type Counter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// counter 单例实例
var (
	counterInstance *Counter
	counterOnce     sync.Once
	counterErr      error
)

// GetCounter 获取 Counter 单例
// 使用单例模式避免重复加载编码文件
func GetCounter() (*Counter, error) {
	counterOnce.Do(func() {
		// cl100k_base 编码，与 text-embedding-3 / GPT-4 系列一致
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &Counter{
			encoding: enc,
		}
	})

	if counterErr != nil {
		return nil, counterErr
	}
	return counterInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	tokens := c.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// CountTokensBatch 批量计算多个文本的 Token 总数
func (c *Counter) CountTokensBatch(texts []string) int {
	total := 0
	for _, text := range texts {
		total += c.CountTokens(text)
	}
	return total
}
