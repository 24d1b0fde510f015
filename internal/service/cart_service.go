package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/cart"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
	"github.com/anirudh-tech/IZONE-sub001/internal/pricing"
)

// 购物车对账的变更类型与原因文案
const (
	ChangeRemoved  = "removed"
	ChangeAdjusted = "adjusted"

	ReasonProductGone        = "Product no longer exists"
	ReasonProductUnpublished = "Product is unpublished"
	ReasonVariantMissing     = "Selected variant not available"
	ReasonVariantOutOfStock  = "Selected variant is out of stock"
	ReasonProductOutOfStock  = "Product is out of stock"
	ReasonQuantityReduced    = "Quantity reduced to available stock"
)

// Change 对账产生的单条变更，供前端展示，绝不静默丢弃
type Change struct {
	Type      string `json:"type"` // removed / adjusted
	ProductID int64  `json:"productId"`
	Variant   string `json:"variant,omitempty"`
	Reason    string `json:"reason"`
	FromQty   int64  `json:"fromQty,omitempty"`
	ToQty     int64  `json:"toQty,omitempty"`
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	OK      bool       `json:"ok"`
	Changes []Change   `json:"changes"`
	Cart    *cart.Cart `json:"cart"`
	Total   string     `json:"total"`
}

// CartService 购物车服务，含对账逻辑
type CartService struct {
	carts    cart.Repository
	products product.Repository
}

// NewCartService 创建购物车服务
func NewCartService(carts cart.Repository, products product.Repository) *CartService {
	return &CartService{carts: carts, products: products}
}

// Get 返回用户购物车，没有时返回空车（不落库）
func (s *CartService) Get(ctx context.Context, userID int64) (*cart.Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, errs.ErrCartNotFound) {
		return &cart.Cart{UserID: userID, Items: []cart.Item{}}, nil
	}
	return c, err
}

// AddItem 加购。首次加购惰性建车；同商品同规格合并数量。
func (s *CartService) AddItem(ctx context.Context, userID, productID, qty int64, variant string) (*cart.Cart, error) {
	if qty <= 0 {
		return nil, errs.Validation("quantity must be at least 1")
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Published() {
		return nil, errs.Validation("product is not available")
	}
	if p.Mode() == product.StockPerVariant {
		if variant == "" {
			return nil, errs.Validation("variant is required for this product")
		}
		if p.FindVariant(variant) == nil {
			return nil, errs.ErrVariantNotFound
		}
	} else if variant != "" {
		return nil, errs.Validation("product has no variants")
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Variant == variant {
			if err := s.carts.UpdateItemQuantity(ctx, c.ID, c.Items[i].ID, c.Items[i].Quantity+qty); err != nil {
				return nil, err
			}
			return s.carts.GetByUser(ctx, userID)
		}
	}
	if err := s.carts.AddItem(ctx, c.ID, &cart.Item{ProductID: productID, Quantity: qty, Variant: variant}); err != nil {
		return nil, err
	}
	return s.carts.GetByUser(ctx, userID)
}

// UpdateItemQuantity 修改条目数量
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID, qty int64) (*cart.Cart, error) {
	if qty <= 0 {
		return nil, errs.Validation("quantity must be at least 1")
	}
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.UpdateItemQuantity(ctx, c.ID, itemID, qty); err != nil {
		return nil, err
	}
	return s.carts.GetByUser(ctx, userID)
}

// RemoveItem 删除条目
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (*cart.Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.RemoveItem(ctx, c.ID, itemID); err != nil {
		return nil, err
	}
	return s.carts.GetByUser(ctx, userID)
}

// Clear 清空购物车（下单成功后调用）
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	c, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, errs.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.carts.Clear(ctx, c.ID)
}

// Reconcile 把购物车与商品目录当前状态对齐，逐条目按序检查：
//  1. 商品不存在或未发布 -> 移除
//  2. 规格商品：规格必须存在且有库存；数量超出库存时下调
//  3. 无规格商品：只看聚合 in_stock
//
// 只有条目集合确实变化时才写回，对未变化的购物车重复执行不产生任何写。
func (s *CartService) Reconcile(ctx context.Context, userID int64) (*ReconcileResult, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]cart.Item, 0, len(c.Items))
	changes := make([]Change, 0)
	total := decimal.Zero

	for _, item := range c.Items {
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, errs.ErrProductNotFound) {
				changes = append(changes, Change{
					Type: ChangeRemoved, ProductID: item.ProductID,
					Variant: item.Variant, Reason: ReasonProductGone,
				})
				continue
			}
			return nil, err
		}
		if !p.Published() {
			changes = append(changes, Change{
				Type: ChangeRemoved, ProductID: item.ProductID,
				Variant: item.Variant, Reason: ReasonProductUnpublished,
			})
			continue
		}

		switch p.Mode() {
		case product.StockPerVariant:
			v := p.FindVariant(item.Variant)
			if v == nil {
				changes = append(changes, Change{
					Type: ChangeRemoved, ProductID: item.ProductID,
					Variant: item.Variant, Reason: ReasonVariantMissing,
				})
				continue
			}
			if !v.InStock || v.Stock <= 0 {
				changes = append(changes, Change{
					Type: ChangeRemoved, ProductID: item.ProductID,
					Variant: item.Variant, Reason: ReasonVariantOutOfStock,
				})
				continue
			}
			if item.Quantity > v.Stock {
				changes = append(changes, Change{
					Type: ChangeAdjusted, ProductID: item.ProductID,
					Variant: item.Variant, Reason: ReasonQuantityReduced,
					FromQty: item.Quantity, ToQty: v.Stock,
				})
				item.Quantity = v.Stock
			}
		case product.StockBoolean:
			if !p.InStock {
				changes = append(changes, Change{
					Type: ChangeRemoved, ProductID: item.ProductID,
					Variant: item.Variant, Reason: ReasonProductOutOfStock,
				})
				continue
			}
			// 无规格商品没有数量上限可用，数量保持不变
		}

		kept = append(kept, item)
		total = total.Add(pricing.LineTotal(p.Price, item.Quantity))
	}

	if cartItemsChanged(c.Items, kept) && c.ID != 0 {
		if err := s.carts.ReplaceItems(ctx, c.ID, kept); err != nil {
			return nil, err
		}
		c, err = s.carts.GetByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	GetMonitor().RecordReconcile(len(changes))
	return &ReconcileResult{
		OK:      len(changes) == 0,
		Changes: changes,
		Cart:    c,
		Total:   total.StringFixed(2),
	}, nil
}

// cartItemsChanged 条目数或任一数量变化即视为有差异
func cartItemsChanged(before, after []cart.Item) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i].ProductID != after[i].ProductID ||
			before[i].Variant != after[i].Variant ||
			before[i].Quantity != after[i].Quantity {
			return true
		}
	}
	return false
}
