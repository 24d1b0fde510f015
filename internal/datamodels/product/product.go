package product

import (
	"context"
	"time"
)

// 商品发布状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// StockMode 库存模式：有规格的商品按规格计数，无规格商品只有布尔库存
type StockMode int

const (
	StockBoolean StockMode = iota
	StockPerVariant
)

// Product 商品模型
type Product struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	Price       string    `gorm:"size:32;not null" json:"price"` // 货币格式字符串，如 "$19.90"
	Category    string    `gorm:"size:32;index" json:"category"`
	Status      string    `gorm:"size:16;index;default:draft" json:"status"` // draft / published
	InStock     bool      `gorm:"not null;default:false" json:"inStock"`     // 聚合可售标记
	Rating      float64   `gorm:"not null;default:0" json:"rating"`          // 评论均分，保留一位小数
	ReviewCount int64     `gorm:"not null;default:0" json:"reviewCount"`
	Variants    []Variant `gorm:"constraint:OnDelete:CASCADE" json:"variants"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Variant 商品规格，每个规格单独计数库存
type Variant struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	ProductID int64  `gorm:"uniqueIndex:uniq_product_variant;not null" json:"productId"`
	Name      string `gorm:"uniqueIndex:uniq_product_variant;size:64;not null" json:"name"`
	Stock     int64  `gorm:"not null;default:0" json:"stock"`
	InStock   bool   `gorm:"not null;default:false" json:"inStock"`
}

// Mode 返回库存模式
func (p *Product) Mode() StockMode {
	if len(p.Variants) > 0 {
		return StockPerVariant
	}
	return StockBoolean
}

// FindVariant 按名称查找规格，找不到返回 nil
func (p *Product) FindVariant(name string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Name == name {
			return &p.Variants[i]
		}
	}
	return nil
}

// AnyVariantInStock 聚合可售标记的定义：任一规格尚有库存
func (p *Product) AnyVariantInStock() bool {
	for i := range p.Variants {
		if p.Variants[i].Stock > 0 {
			return true
		}
	}
	return false
}

// Published 是否对买家可见
func (p *Product) Published() bool {
	return p.Status == StatusPublished
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListPublished(ctx context.Context) ([]*Product, error)
	ListByCategory(ctx context.Context, category string) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error

	// DecrementVariantStock 条件更新扣减规格库存（stock >= qty 时才生效），
	// 返回扣减后的剩余库存。库存不足返回 errs.ErrInsufficientStock。
	DecrementVariantStock(ctx context.Context, productID int64, variant string, qty int64) (int64, error)
	// IncrementVariantStock 原子加回库存（补货/下单补偿）
	IncrementVariantStock(ctx context.Context, productID int64, variant string, qty int64) (int64, error)
	// RefreshStockFlags 按当前规格库存重算规格与聚合的 in_stock 标记
	RefreshStockFlags(ctx context.Context, productID int64) (bool, error)
	// UpdateRating 写回评论均分与数量
	UpdateRating(ctx context.Context, productID int64, rating float64, count int64) error
}
