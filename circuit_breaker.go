package lotto

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerFetcher 带熔断器的开奖页抓取器
//
// 每次调用仍然只请求一次; 页面持续失败时熔断器直接拒绝请求.
type CircuitBreakerFetcher struct {
	fetcher PageFetcher

	// 重置时整体替换, Fetch 在工作协程上并发读取
	breaker atomic.Pointer[gobreaker.CircuitBreaker]
	logger  Logger
	config  *CircuitBreakerConfig
}

// NewCircuitBreakerFetcher 创建带熔断器的抓取器
func NewCircuitBreakerFetcher(fetcher PageFetcher, config *CircuitBreakerConfig, logger Logger) *CircuitBreakerFetcher {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	c := &CircuitBreakerFetcher{
		fetcher: fetcher,
		logger:  logger,
		config:  config,
	}
	if config.Enabled {
		c.breaker.Store(gobreaker.NewCircuitBreaker(c.settings()))
	}
	return c
}

// settings 根据配置生成 gobreaker 设置
func (c *CircuitBreakerFetcher) settings() gobreaker.Settings {
	config := c.config
	return gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 当请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				c.logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
		// 调用方主动取消不算页面故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

// Fetch 通过熔断器抓取页面
func (c *CircuitBreakerFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	breaker := c.breaker.Load()
	if breaker == nil {
		return c.fetcher.Fetch(ctx, pageURL)
	}

	result, err := breaker.Execute(func() (any, error) {
		return c.fetcher.Fetch(ctx, pageURL)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			return "", ErrCircuitBreakerOpen.WithDetails("results page requests are being rejected").WithCause(err)
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			return "", ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open").WithCause(err)
		}
		return "", err
	}

	return result.(string), nil
}

// GetCircuitBreakerState 获取熔断器状态
func (c *CircuitBreakerFetcher) GetCircuitBreakerState() string {
	breaker := c.breaker.Load()
	if breaker == nil {
		return "disabled"
	}

	switch breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GetCircuitBreakerCounts 获取熔断器统计信息
func (c *CircuitBreakerFetcher) GetCircuitBreakerCounts() gobreaker.Counts {
	breaker := c.breaker.Load()
	if breaker == nil {
		return gobreaker.Counts{}
	}
	return breaker.Counts()
}

// ResetCircuitBreaker 重置熔断器 (gobreaker 没有 Reset 方法, 重新创建实例)
func (c *CircuitBreakerFetcher) ResetCircuitBreaker() {
	if c.breaker.Load() == nil {
		return
	}
	c.breaker.Store(gobreaker.NewCircuitBreaker(c.settings()))
	c.logger.Info("Circuit breaker '%s' has been reset (recreated)", c.config.Name)
}

// HealthCheck 熔断器健康检查
func (c *CircuitBreakerFetcher) HealthCheck() map[string]any {
	result := map[string]any{
		"circuit_breaker_enabled": c.config.Enabled,
	}

	if c.breaker.Load() == nil {
		result["state"] = "disabled"
		result["healthy"] = true
		return result
	}

	state := c.GetCircuitBreakerState()
	counts := c.GetCircuitBreakerCounts()

	result["state"] = state
	result["requests"] = counts.Requests
	result["total_successes"] = counts.TotalSuccesses
	result["total_failures"] = counts.TotalFailures
	result["consecutive_failures"] = counts.ConsecutiveFailures

	healthy := true
	switch state {
	case "open":
		healthy = false
	case "half-open":
		if counts.ConsecutiveFailures > 0 {
			healthy = false
		}
	}
	result["healthy"] = healthy

	return result
}

// CollectMetrics 收集熔断器指标
func (c *CircuitBreakerFetcher) CollectMetrics() map[string]any {
	metrics := map[string]any{
		"circuit_breaker_enabled": c.config.Enabled,
		"timestamp":               time.Now().Unix(),
	}
	if c.breaker.Load() == nil {
		return metrics
	}

	state := c.GetCircuitBreakerState()
	counts := c.GetCircuitBreakerCounts()

	metrics["circuit_breaker_state"] = state
	metrics["circuit_breaker_state_numeric"] = stateToNumeric(state)
	metrics["circuit_breaker_requests_total"] = counts.Requests
	metrics["circuit_breaker_failures_total"] = counts.TotalFailures
	if counts.Requests > 0 {
		metrics["circuit_breaker_failure_rate"] = float64(counts.TotalFailures) / float64(counts.Requests)
	} else {
		metrics["circuit_breaker_failure_rate"] = 0.0
	}
	metrics["circuit_breaker_timeout_seconds"] = c.config.Timeout.Seconds()

	return metrics
}

// stateToNumeric 将状态转换为数值
func stateToNumeric(state string) int {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
