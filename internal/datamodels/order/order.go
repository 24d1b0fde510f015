package order

import (
	"context"
	"time"
)

// 订单状态
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// 支付状态
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// CancellationDisclaimer 固定的取消政策说明，下单时写入订单
const CancellationDisclaimer = "Orders can only be cancelled by contacting support before shipment."

var validStatus = map[string]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusShipped:    {},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var validPayment = map[string]struct{}{
	PaymentPending:  {},
	PaymentPaid:     {},
	PaymentFailed:   {},
	PaymentRefunded: {},
}

// ValidStatus 校验订单状态取值
func ValidStatus(s string) bool {
	_, ok := validStatus[s]
	return ok
}

// ValidPaymentStatus 校验支付状态取值
func ValidPaymentStatus(s string) bool {
	_, ok := validPayment[s]
	return ok
}

// Order 订单，创建后为客户/商品信息的不可变快照
type Order struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"` // ORD-YYYYMMDD-NNN
	UserID      int64  `gorm:"index;not null" json:"userId"`

	CustomerName  string `gorm:"size:128;not null" json:"customerName"`
	CustomerEmail string `gorm:"size:128;not null" json:"customerEmail"`
	CustomerPhone string `gorm:"size:32" json:"customerPhone"`

	ShippingAddress  string `gorm:"size:256;not null" json:"shippingAddress"`
	ShippingCity     string `gorm:"size:64" json:"shippingCity"`
	ShippingPostcode string `gorm:"size:16" json:"shippingPostcode"`
	ShippingCountry  string `gorm:"size:64" json:"shippingCountry"`

	Items []Item `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Total string `gorm:"size:32;not null" json:"total"`

	Status         string     `gorm:"size:16;index;not null" json:"status"`
	PaymentStatus  string     `gorm:"size:16;not null" json:"paymentStatus"`
	TrackingNumber string     `gorm:"size:64" json:"trackingNumber"`
	Notes          string     `gorm:"size:512" json:"notes"`
	DeliveredAt    *time.Time `json:"deliveredAt"` // 仅在首次进入 delivered 时写入一次
	Disclaimer     string     `gorm:"size:256" json:"disclaimer"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item 订单行，名称与价格为下单时的拷贝，后续商品修改不影响历史订单
type Item struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	OrderID     int64  `gorm:"index;not null" json:"-"`
	ProductID   int64  `gorm:"not null" json:"productId"`
	ProductName string `gorm:"size:128;not null" json:"productName"`
	UnitPrice   string `gorm:"size:32;not null" json:"unitPrice"`
	Quantity    int64  `gorm:"not null" json:"quantity"`
	Variant     string `gorm:"size:64" json:"variant"`
	LineTotal   string `gorm:"size:32;not null" json:"lineTotal"`
}

// Repository 订单仓储接口
type Repository interface {
	// Create 插入订单；订单号撞唯一索引时返回 errs.ErrDuplicateOrderNumber
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	// CountCreatedBetween 统计 [from, to) 内创建的订单数，用于当日序号分配
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	// UpdateFields 只更新白名单字段（status/payment_status/tracking_number/notes）
	UpdateFields(ctx context.Context, id int64, fields map[string]any) error
	// SetDeliveredAt 条件写入送达时间，仅当 delivered_at 仍为空时生效
	SetDeliveredAt(ctx context.Context, id int64, t time.Time) error
}
