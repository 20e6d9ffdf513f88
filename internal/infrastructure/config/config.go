package config

import (
	"os"
	"strconv"
)

// Config 应用配置
type Config struct {
	Server ServerConfig
	Vector VectorConfig
	RAG    RAGConfig
	Agent  AgentConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string
}

// VectorConfig Qdrant 向量库配置
type VectorConfig struct {
	Host       string // Qdrant gRPC 地址
	Port       int    // Qdrant gRPC 端口
	Collection string // 文档片段集合名
	VectorDim  int    // 向量维度（须与 embedding 模型一致）
}

// RAGConfig 检索问答配置
type RAGConfig struct {
	ChunkSize    int     // 分片目标长度（字符）
	ChunkOverlap int     // 相邻分片重叠（字符）
	TopK         int     // 检索返回的最大片段数
	MinScore     float32 // 相似度下限，低于此分数的命中被丢弃
}

// AgentConfig 多智能体编排配置
type AgentConfig struct {
	MaxSubQueries  int // 子问题数量上限
	TimeoutSeconds int // 整体编排超时（秒）
}

// NewConfig 创建配置（默认值 + 环境变量覆盖）
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: getEnv("FINSIGHT_HTTP_PORT", ":19080"),
		},
		Vector: VectorConfig{
			Host:       getEnv("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnv("QDRANT_COLLECTION", "document_chunks"),
			VectorDim:  getEnvInt("EMBEDDING_DIM", 1536),
		},
		RAG: RAGConfig{
			ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
			TopK:         getEnvInt("RETRIEVAL_TOP_K", 5),
			MinScore:     getEnvFloat("MIN_RELEVANCE_SCORE", 0.5),
		},
		Agent: AgentConfig{
			MaxSubQueries:  getEnvInt("MAX_SUB_QUERIES", 5),
			TimeoutSeconds: getEnvInt("AGENT_TIMEOUT_SECONDS", 30),
		},
	}
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewVectorConfig 创建向量库配置
func NewVectorConfig(cfg *Config) *VectorConfig {
	return &cfg.Vector
}

// NewRAGConfig 创建检索配置
func NewRAGConfig(cfg *Config) *RAGConfig {
	return &cfg.RAG
}

// NewAgentConfig 创建编排配置
func NewAgentConfig(cfg *Config) *AgentConfig {
	return &cfg.Agent
}

// getEnv 获取环境变量，带默认值
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvFloat 获取浮点型环境变量
func getEnvFloat(key string, defaultValue float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return defaultValue
	}
	return float32(f)
}
