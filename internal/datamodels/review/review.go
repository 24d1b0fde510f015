package review

import (
	"context"
	"time"
)

// Review 商品评论，均分与数量聚合缓存在商品上
type Review struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ProductID int64     `gorm:"uniqueIndex:uniq_user_product;not null" json:"productId"`
	UserID    int64     `gorm:"uniqueIndex:uniq_user_product;not null" json:"userId"`
	Rating    int       `gorm:"not null" json:"rating"` // 1..5
	Comment   string    `gorm:"size:1024" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository 评论仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]*Review, error)
	Create(ctx context.Context, r *Review) error
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id int64) error
}
