package cart

import (
	"context"
	"time"
)

// Cart 购物车，每个用户唯一
type Cart struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"userId"`
	Items     []Item    `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item 购物车条目，只持有商品引用，不快照价格
type Item struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	CartID    int64  `gorm:"index;not null" json:"-"`
	ProductID int64  `gorm:"not null" json:"productId"`
	Quantity  int64  `gorm:"not null" json:"quantity"`
	Variant   string `gorm:"size:64" json:"variant"`
}

// Repository 购物车仓储接口
type Repository interface {
	// GetByUser 返回用户购物车（含条目），不存在时返回 errs.ErrCartNotFound
	GetByUser(ctx context.Context, userID int64) (*Cart, error)
	// GetOrCreate 首次加购时惰性建车
	GetOrCreate(ctx context.Context, userID int64) (*Cart, error)
	AddItem(ctx context.Context, cartID int64, item *Item) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID, quantity int64) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	// ReplaceItems 用校正后的条目整体替换（对账写回）
	ReplaceItems(ctx context.Context, cartID int64, items []Item) error
	Clear(ctx context.Context, cartID int64) error
}
