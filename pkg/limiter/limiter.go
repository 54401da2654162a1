// Package limiter 基于令牌桶的接口限流
package limiter

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face 限流器接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule 令牌桶规则
type BucketRule struct {
	Key          string        // route path // 路由路径
	FillInterval time.Duration // interval between refills // 放入令牌的间隔
	Capacity     int64         // bucket size // 桶容量
	Quantum      int64         // tokens per refill // 每次放入的令牌数
}

// MethodLimiter 按路由路径限流
type MethodLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

func NewMethodLimiter() Face {
	return &MethodLimiter{buckets: make(map[string]*ratelimit.Bucket)}
}

// Key 去掉查询串的请求路径
func (l *MethodLimiter) Key(c *gin.Context) string {
	uri := c.Request.RequestURI
	if i := strings.Index(uri, "?"); i >= 0 {
		return uri[:i]
	}
	return uri
}

func (l *MethodLimiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bucket, ok := l.buckets[key]
	return bucket, ok
}

func (l *MethodLimiter) AddBuckets(rules ...BucketRule) Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rule := range rules {
		if rule.Capacity <= 0 || rule.FillInterval <= 0 {
			continue
		}
		if _, ok := l.buckets[rule.Key]; ok {
			continue
		}
		quantum := rule.Quantum
		if quantum <= 0 {
			quantum = 1
		}
		l.buckets[rule.Key] = ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, quantum)
	}
	return l
}

// RuleFromRate 将每秒速率和突发量转换为规则，rate <= 0 返回 false
func RuleFromRate(key string, rate float64, burst int64) (BucketRule, bool) {
	if rate <= 0 {
		return BucketRule{}, false
	}
	if burst <= 0 {
		burst = int64(rate) + 1
	}
	return BucketRule{
		Key:          key,
		FillInterval: time.Duration(float64(time.Second) / rate),
		Capacity:     burst,
		Quantum:      1,
	}, true
}
