package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/order"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
	"github.com/anirudh-tech/IZONE-sub001/internal/pricing"
)

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`

	ShippingAddress  string `json:"shippingAddress"`
	ShippingCity     string `json:"shippingCity"`
	ShippingPostcode string `json:"shippingPostcode"`
	ShippingCountry  string `json:"shippingCountry"`

	Items []CreateOrderItem `json:"items"`
}

// CreateOrderItem 下单行
type CreateOrderItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Variant   string `json:"variant"`
}

// UpdateOrderRequest 订单生命周期更新请求。
// 只有这四个字段允许在创建后修改，nil 表示不更新。
type UpdateOrderRequest struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"paymentStatus"`
	TrackingNumber *string `json:"trackingNumber"`
	Notes          *string `json:"notes"`
}

// OrderService 订单生命周期管理：创建快照、状态机推进、通知触发
type OrderService struct {
	orders     order.Repository
	products   product.Repository
	inventory  *InventoryService
	allocator  *OrderNumberAllocator
	notifier   Notifier
	maxRetries int
	now        func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(
	orders order.Repository,
	products product.Repository,
	inventory *InventoryService,
	notifier Notifier,
	maxNumberRetries int,
) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if maxNumberRetries <= 0 {
		maxNumberRetries = 3
	}
	return &OrderService{
		orders:     orders,
		products:   products,
		inventory:  inventory,
		allocator:  NewOrderNumberAllocator(orders),
		notifier:   notifier,
		maxRetries: maxNumberRetries,
		now:        time.Now,
	}
}

func (s *OrderService) validateCreate(req *CreateOrderRequest) error {
	switch {
	case strings.TrimSpace(req.CustomerName) == "":
		return errs.Validation("customer name is required")
	case strings.TrimSpace(req.CustomerEmail) == "" || !strings.Contains(req.CustomerEmail, "@"):
		return errs.Validation("a valid customer email is required")
	case strings.TrimSpace(req.ShippingAddress) == "":
		return errs.Validation("shipping address is required")
	case len(req.Items) == 0:
		return errs.Validation("order must contain at least one item")
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return errs.Validationf("invalid quantity for product %d", it.ProductID)
		}
	}
	return nil
}

// decremented 记录已扣减的行，失败时按原量补偿回去
type decremented struct {
	productID int64
	variant   string
	qty       int64
}

// Create 下单。对每一行先核对发布状态，再通过库存台账扣减
// （规格商品走原子扣减，布尔库存商品复核 in_stock），任一行失败则
// 补偿之前已扣减的行并放弃整单。订单号分配与插入在唯一索引保护下重试。
func (s *OrderService) Create(ctx context.Context, userID int64, req *CreateOrderRequest) (*order.Order, error) {
	GetMonitor().RecordCheckoutRequest()
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	var (
		items   []order.Item
		applied []decremented
		total   = decimal.Zero
	)
	rollback := func() {
		for _, d := range applied {
			if _, err := s.inventory.Restock(ctx, d.productID, d.variant, d.qty); err != nil {
				zap.L().Error("checkout compensation failed",
					zap.Int64("product_id", d.productID),
					zap.String("variant", d.variant),
					zap.Int64("qty", d.qty),
					zap.Error(err))
			}
		}
	}

	for _, it := range req.Items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			rollback()
			return nil, err
		}
		if !p.Published() {
			rollback()
			return nil, errs.Validationf("product %q is not available", p.Name)
		}

		switch p.Mode() {
		case product.StockPerVariant:
			if it.Variant == "" {
				rollback()
				return nil, errs.Validationf("variant is required for product %q", p.Name)
			}
			if _, err := s.inventory.Decrement(ctx, it.ProductID, it.Variant, it.Quantity); err != nil {
				rollback()
				return nil, err
			}
			applied = append(applied, decremented{it.ProductID, it.Variant, it.Quantity})
		case product.StockBoolean:
			// 没有计数可扣，下单时刻重查聚合标记作为把关
			if !p.InStock {
				rollback()
				GetMonitor().RecordStockConflict()
				return nil, errs.ErrInsufficientStock
			}
		}

		line := pricing.LineTotal(p.Price, it.Quantity)
		total = total.Add(line)
		items = append(items, order.Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    it.Quantity,
			Variant:     it.Variant,
			LineTotal:   line.StringFixed(2),
		})
	}

	o := &order.Order{
		UserID:           userID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		ShippingAddress:  req.ShippingAddress,
		ShippingCity:     req.ShippingCity,
		ShippingPostcode: req.ShippingPostcode,
		ShippingCountry:  req.ShippingCountry,
		Items:            items,
		Total:            total.StringFixed(2),
		Status:           order.StatusPending,
		PaymentStatus:    order.PaymentPending,
		Disclaimer:       order.CancellationDisclaimer,
	}

	// 订单号按当日计数推导，冲突说明有并发下单，重新取号再插
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		number, err := s.allocator.Next(ctx, s.now())
		if err != nil {
			rollback()
			return nil, err
		}
		o.ID = 0
		o.OrderNumber = number
		if err = s.orders.Create(ctx, o); err == nil {
			GetMonitor().RecordCheckoutSuccess()
			return o, nil
		}
		if !errors.Is(err, errs.ErrDuplicateOrderNumber) {
			rollback()
			return nil, err
		}
		lastErr = err
		zap.L().Warn("order number collision, retrying",
			zap.String("order_number", number), zap.Int("attempt", attempt+1))
	}

	rollback()
	return nil, lastErr
}

// Update 更新订单生命周期字段，白名单之外的字段一律不动。
// 首次进入 delivered 时落送达时间（条件写入，已送达的订单不会被覆盖）。
// 状态确实发生变化时触发买家通知，通知失败只记录。
func (s *OrderService) Update(ctx context.Context, orderID int64, req *UpdateOrderRequest) (*order.Order, error) {
	existing, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	statusChanged := false
	if req.Status != nil {
		if !order.ValidStatus(*req.Status) {
			return nil, errs.Validationf("invalid status %q", *req.Status)
		}
		if *req.Status != existing.Status {
			statusChanged = true
		}
		fields["status"] = *req.Status
	}
	if req.PaymentStatus != nil {
		if !order.ValidPaymentStatus(*req.PaymentStatus) {
			return nil, errs.Validationf("invalid payment status %q", *req.PaymentStatus)
		}
		fields["payment_status"] = *req.PaymentStatus
	}
	if req.TrackingNumber != nil {
		fields["tracking_number"] = *req.TrackingNumber
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if len(fields) > 0 {
		if err := s.orders.UpdateFields(ctx, orderID, fields); err != nil {
			return nil, err
		}
	}

	// 送达时间只写一次，靠 delivered_at IS NULL 条件兜底任何写入顺序
	if req.Status != nil && *req.Status == order.StatusDelivered {
		if err := s.orders.SetDeliveredAt(ctx, orderID, s.now()); err != nil {
			return nil, err
		}
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		n := &StatusNotification{
			To:             updated.CustomerEmail,
			OrderNumber:    updated.OrderNumber,
			PreviousStatus: existing.Status,
			NewStatus:      updated.Status,
			TrackingNumber: updated.TrackingNumber,
			Notes:          updated.Notes,
		}
		if err := s.notifier.OrderStatusChanged(ctx, n); err != nil {
			// 通知是尽力而为，失败不回滚状态更新
			GetMonitor().RecordNotifyError()
			zap.L().Warn("order notification failed",
				zap.String("order_number", updated.OrderNumber),
				zap.String("new_status", updated.Status),
				zap.Error(err))
		}
	}
	return updated, nil
}

// GetByID 查询订单
func (s *OrderService) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetByNumber 按订单号查询
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

// ListByUser 查询用户自己的订单
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListRecent 后台查询最近订单
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.orders.ListRecent(ctx, limit)
}
