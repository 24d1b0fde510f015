package service

import (
	"context"
	"fmt"
	"time"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/order"
)

// OrderNumberAllocator 生成按天编号的可读订单号：ORD-YYYYMMDD-NNN。
// 基于当日已有订单数推导序号，本身并不保证并发唯一；
// 唯一性由 order_number 的唯一索引兜底，冲突由创建方重试。
type OrderNumberAllocator struct {
	orders order.Repository
}

// NewOrderNumberAllocator 创建订单号分配器
func NewOrderNumberAllocator(orders order.Repository) *OrderNumberAllocator {
	return &OrderNumberAllocator{orders: orders}
}

// Next 计算 now 所在自然日内的下一个订单号
func (a *OrderNumberAllocator) Next(ctx context.Context, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	count, err := a.orders.CountCreatedBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(now, count+1), nil
}

// FormatOrderNumber 按固定格式拼订单号，序号补零到三位
func FormatOrderNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%03d", now.Format("20060102"), seq)
}
