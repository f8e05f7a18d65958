package lotto

import (
	"sync"
	"sync/atomic"
	"time"
)

// PerformanceMetrics 性能指标
type PerformanceMetrics struct {
	// 抓取统计
	TotalFetches  int64 `json:"total_fetches"`   // 总抓取次数
	FailedFetches int64 `json:"failed_fetches"`  // 抓取失败次数
	TotalFetchNs  int64 `json:"total_fetch_ns"`  // 抓取总耗时(纳秒)
	Parses        int64 `json:"parses"`          // 解析次数
	SentinelCount int64 `json:"sentinel_count"`  // 发布占位结果的次数
	Published     int64 `json:"published_count"` // 发布结果总数

	// 录入统计
	AcceptedBatches int64 `json:"accepted_batches"` // 校验通过的批次
	RejectedBatches int64 `json:"rejected_batches"` // 校验失败的批次
	RecordsInserted int64 `json:"records_inserted"` // 写入的记录数
	Toggles         int64 `json:"toggles"`          // 勾选切换次数
	StoreErrors     int64 `json:"store_errors"`     // 存储错误数

	// 时间戳
	StartTime      int64 `json:"start_time"`       // 开始时间
	LastUpdateTime int64 `json:"last_update_time"` // 最后更新时间
}

// GetFetchSuccessRate 获取抓取成功率
func (pm *PerformanceMetrics) GetFetchSuccessRate() float64 {
	total := atomic.LoadInt64(&pm.TotalFetches)
	if total == 0 {
		return 0.0
	}
	failed := atomic.LoadInt64(&pm.FailedFetches)
	return float64(total-failed) / float64(total) * 100.0
}

// GetAverageFetchTime 获取平均抓取耗时
func (pm *PerformanceMetrics) GetAverageFetchTime() time.Duration {
	total := atomic.LoadInt64(&pm.TotalFetches)
	if total == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&pm.TotalFetchNs) / total)
}

// Reset 重置性能指标
func (pm *PerformanceMetrics) Reset() {
	atomic.StoreInt64(&pm.TotalFetches, 0)
	atomic.StoreInt64(&pm.FailedFetches, 0)
	atomic.StoreInt64(&pm.TotalFetchNs, 0)
	atomic.StoreInt64(&pm.Parses, 0)
	atomic.StoreInt64(&pm.SentinelCount, 0)
	atomic.StoreInt64(&pm.Published, 0)
	atomic.StoreInt64(&pm.AcceptedBatches, 0)
	atomic.StoreInt64(&pm.RejectedBatches, 0)
	atomic.StoreInt64(&pm.RecordsInserted, 0)
	atomic.StoreInt64(&pm.Toggles, 0)
	atomic.StoreInt64(&pm.StoreErrors, 0)
	atomic.StoreInt64(&pm.StartTime, time.Now().UnixNano())
	atomic.StoreInt64(&pm.LastUpdateTime, time.Now().UnixNano())
}

// ================================================================================

// PerformanceMonitor 性能监控器
type PerformanceMonitor struct {
	metrics *PerformanceMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewPerformanceMonitor 创建性能监控器
func NewPerformanceMonitor() *PerformanceMonitor {
	now := time.Now().UnixNano()
	return &PerformanceMonitor{
		metrics: &PerformanceMetrics{StartTime: now, LastUpdateTime: now},
		enabled: true,
	}
}

// Enable 启用监控
func (pm *PerformanceMonitor) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Disable 禁用监控
func (pm *PerformanceMonitor) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// IsEnabled 检查监控是否启用
func (pm *PerformanceMonitor) IsEnabled() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

func (pm *PerformanceMonitor) touch() {
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordFetch 记录一次抓取
func (pm *PerformanceMonitor) RecordFetch(success bool, duration time.Duration) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.TotalFetches, 1)
	atomic.AddInt64(&pm.metrics.TotalFetchNs, int64(duration))
	if !success {
		atomic.AddInt64(&pm.metrics.FailedFetches, 1)
	}
	pm.touch()
}

// RecordPublish 记录一次结果发布
func (pm *PerformanceMonitor) RecordPublish(result DrawResult, parsed bool) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.Published, 1)
	if parsed {
		atomic.AddInt64(&pm.metrics.Parses, 1)
	}
	if result.IsSentinel() {
		atomic.AddInt64(&pm.metrics.SentinelCount, 1)
	}
	pm.touch()
}

// RecordValidation 记录一次批量校验
func (pm *PerformanceMonitor) RecordValidation(accepted bool) {
	if !pm.IsEnabled() {
		return
	}

	if accepted {
		atomic.AddInt64(&pm.metrics.AcceptedBatches, 1)
	} else {
		atomic.AddInt64(&pm.metrics.RejectedBatches, 1)
	}
	pm.touch()
}

// RecordInsert 记录写入的记录数
func (pm *PerformanceMonitor) RecordInsert(count int) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.RecordsInserted, int64(count))
	pm.touch()
}

// RecordToggle 记录一次勾选切换
func (pm *PerformanceMonitor) RecordToggle() {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.Toggles, 1)
	pm.touch()
}

// RecordStoreError 记录存储错误
func (pm *PerformanceMonitor) RecordStoreError() {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.StoreErrors, 1)
	pm.touch()
}

// GetMetrics 获取性能指标的副本
func (pm *PerformanceMonitor) GetMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		TotalFetches:    atomic.LoadInt64(&pm.metrics.TotalFetches),
		FailedFetches:   atomic.LoadInt64(&pm.metrics.FailedFetches),
		TotalFetchNs:    atomic.LoadInt64(&pm.metrics.TotalFetchNs),
		Parses:          atomic.LoadInt64(&pm.metrics.Parses),
		SentinelCount:   atomic.LoadInt64(&pm.metrics.SentinelCount),
		Published:       atomic.LoadInt64(&pm.metrics.Published),
		AcceptedBatches: atomic.LoadInt64(&pm.metrics.AcceptedBatches),
		RejectedBatches: atomic.LoadInt64(&pm.metrics.RejectedBatches),
		RecordsInserted: atomic.LoadInt64(&pm.metrics.RecordsInserted),
		Toggles:         atomic.LoadInt64(&pm.metrics.Toggles),
		StoreErrors:     atomic.LoadInt64(&pm.metrics.StoreErrors),
		StartTime:       atomic.LoadInt64(&pm.metrics.StartTime),
		LastUpdateTime:  atomic.LoadInt64(&pm.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置性能指标
func (pm *PerformanceMonitor) ResetMetrics() { pm.metrics.Reset() }
