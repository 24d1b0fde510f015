package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrProductNotFound
		}
		return nil, errs.Internal("query product", err)
	}
	return &p, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, errs.Internal("list products", err)
	}
	return list, nil
}

func (r *productRepo) ListPublished(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("status = ?", product.StatusPublished).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, errs.Internal("list published products", err)
	}
	return list, nil
}

func (r *productRepo) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Variants").
		Where("status = ?", product.StatusPublished)
	if category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}
	var list []*product.Product
	if err := query.Order("id DESC").Find(&list).Error; err != nil {
		return nil, errs.Internal("list products by category", err)
	}
	return list, nil
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return errs.Internal("create product", err)
	}
	return nil
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(p).Error; err != nil {
			return err
		}
		// 整体替换规格集合，保持与请求一致
		return tx.Model(p).Association("Variants").Unscoped().Replace(p.Variants)
	})
	if err != nil {
		return errs.Internal("update product", err)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&product.Variant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product.Product{}, id).Error
	})
	if err != nil {
		return errs.Internal("delete product", err)
	}
	return nil
}

// DecrementVariantStock 单条条件 UPDATE 扣减库存：
//
//	UPDATE variants SET stock = stock - ? WHERE product_id = ? AND name = ? AND stock >= ?
//
// 并发扣减同一规格时数据库保证不会出现负库存，绝不走“读出来减完再写回”。
func (r *productRepo) DecrementVariantStock(ctx context.Context, productID int64, variant string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, errs.Validation("quantity must be positive")
	}
	res := r.db.WithContext(ctx).Model(&product.Variant{}).
		Where("product_id = ? AND name = ? AND stock >= ?", productID, variant, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return 0, errs.Internal("decrement variant stock", res.Error)
	}
	if res.RowsAffected == 0 {
		// 没有命中行：要么规格不存在，要么库存不足，查一次区分
		var v product.Variant
		err := r.db.WithContext(ctx).
			Where("product_id = ? AND name = ?", productID, variant).
			First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errs.ErrVariantNotFound
		}
		if err != nil {
			return 0, errs.Internal("query variant", err)
		}
		return v.Stock, errs.ErrInsufficientStock
	}
	return r.variantStock(ctx, productID, variant)
}

// IncrementVariantStock 原子加回库存，用于补货和下单失败补偿
func (r *productRepo) IncrementVariantStock(ctx context.Context, productID int64, variant string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, errs.Validation("quantity must be positive")
	}
	res := r.db.WithContext(ctx).Model(&product.Variant{}).
		Where("product_id = ? AND name = ?", productID, variant).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return 0, errs.Internal("increment variant stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, errs.ErrVariantNotFound
	}
	return r.variantStock(ctx, productID, variant)
}

func (r *productRepo) variantStock(ctx context.Context, productID int64, variant string) (int64, error) {
	var v product.Variant
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND name = ?", productID, variant).
		First(&v).Error; err != nil {
		return 0, errs.Internal("query variant", err)
	}
	return v.Stock, nil
}

// RefreshStockFlags 重算规格与聚合的 in_stock 标记，返回聚合结果
func (r *productRepo) RefreshStockFlags(ctx context.Context, productID int64) (bool, error) {
	if err := r.db.WithContext(ctx).Model(&product.Variant{}).
		Where("product_id = ?", productID).
		UpdateColumn("in_stock", gorm.Expr("stock > 0")).Error; err != nil {
		return false, errs.Internal("refresh variant flags", err)
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&product.Variant{}).
		Where("product_id = ? AND stock > 0", productID).
		Count(&n).Error; err != nil {
		return false, errs.Internal("count in-stock variants", err)
	}

	inStock := n > 0
	if err := r.db.WithContext(ctx).Model(&product.Product{}).
		Where("id = ?", productID).
		UpdateColumn("in_stock", inStock).Error; err != nil {
		return false, errs.Internal("refresh product flag", err)
	}
	return inStock, nil
}

func (r *productRepo) UpdateRating(ctx context.Context, productID int64, rating float64, count int64) error {
	err := r.db.WithContext(ctx).Model(&product.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{"rating": rating, "review_count": count}).Error
	if err != nil {
		return errs.Internal("update rating", err)
	}
	return nil
}
