package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，用于统计核心链路的错误和吞吐
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors     int64
	MQErrors        int64
	DBErrors        int64
	StockConflicts  int64 // 扣减失败（库存不足）
	NotifyErrors    int64
	RecomputeErrors int64

	// 吞吐统计
	CheckoutRequests int64
	CheckoutSuccess  int64
	ReconcileRuns    int64
	ReconcileChanges int64

	// 时间统计
	LastRedisError   time.Time
	LastMQError      time.Time
	LastDBError      time.Time
	LastCheckoutTime time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError 记录Redis错误
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError 记录MQ错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordStockConflict 记录一次库存不足的扣减
func (m *Monitor) RecordStockConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StockConflicts++
}

// RecordNotifyError 记录通知发送失败
func (m *Monitor) RecordNotifyError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyErrors++
}

// RecordRecomputeError 记录评分重算失败
func (m *Monitor) RecordRecomputeError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecomputeErrors++
}

// RecordCheckoutRequest 记录下单请求
func (m *Monitor) RecordCheckoutRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutRequests++
	m.LastCheckoutTime = time.Now()
}

// RecordCheckoutSuccess 记录下单成功
func (m *Monitor) RecordCheckoutSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutSuccess++
}

// RecordReconcile 记录一次购物车对账及其产生的变更数
func (m *Monitor) RecordReconcile(changes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReconcileRuns++
	m.ReconcileChanges += int64(changes)
}

// Snapshot 返回当前计数的拷贝，供后台状态接口展示
func (m *Monitor) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]any{
		"redis_errors":      m.RedisErrors,
		"mq_errors":         m.MQErrors,
		"db_errors":         m.DBErrors,
		"stock_conflicts":   m.StockConflicts,
		"notify_errors":     m.NotifyErrors,
		"recompute_errors":  m.RecomputeErrors,
		"checkout_requests": m.CheckoutRequests,
		"checkout_success":  m.CheckoutSuccess,
		"reconcile_runs":    m.ReconcileRuns,
		"reconcile_changes": m.ReconcileChanges,
	}
}
