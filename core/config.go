package core

// RecommendConfig 提供推荐相关的默认值。
type RecommendConfig interface {
	// DefaultCount 返回默认的推荐数量
	DefaultCount() int

	// HistorySize 返回每个用户保留的最大历史长度
	HistorySize() int

	// RatingMargin 返回历史推荐中允许低于平均评分的幅度
	RatingMargin() float64

	// MaxFeatures 返回 TF-IDF 词表的最大词数
	MaxFeatures() int
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultCount() int { return 10 }

func (c *DefaultRecommendConfig) HistorySize() int { return 50 }

func (c *DefaultRecommendConfig) RatingMargin() float64 { return 1.0 }

func (c *DefaultRecommendConfig) MaxFeatures() int { return 5000 }
