package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/order"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		// order_number 唯一索引兜底并发分配的冲突，调用方据此重试
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrDuplicateOrderNumber
		}
		return errs.Internal("create order", err)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrOrderNotFound
		}
		return nil, errs.Internal("query order", err)
	}
	return &o, nil
}

func (r *orderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", number).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrOrderNotFound
		}
		return nil, errs.Internal("query order", err)
	}
	return &o, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, errs.Internal("list orders", err)
	}
	return list, nil
}

func (r *orderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, errs.Internal("list recent orders", err)
	}
	return list, nil
}

func (r *orderRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error; err != nil {
		return 0, errs.Internal("count orders", err)
	}
	return n, nil
}

// UpdateFields 只允许更新生命周期白名单字段，其余列一律不触碰
func (r *orderRepo) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return errs.Internal("update order", err)
	}
	return nil
}

// SetDeliveredAt 条件写入：delivered_at 已有值时不会覆盖
func (r *orderRepo) SetDeliveredAt(ctx context.Context, id int64, t time.Time) error {
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND delivered_at IS NULL", id).
		UpdateColumn("delivered_at", t).Error; err != nil {
		return errs.Internal("set delivered_at", err)
	}
	return nil
}
