package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/cart"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

type cartRepo struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) cart.Repository {
	return &cartRepo{db: db}
}

func (r *cartRepo) GetByUser(ctx context.Context, userID int64) (*cart.Cart, error) {
	var c cart.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCartNotFound
		}
		return nil, errs.Internal("query cart", err)
	}
	return &c, nil
}

func (r *cartRepo) GetOrCreate(ctx context.Context, userID int64) (*cart.Cart, error) {
	c, err := r.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, errs.ErrCartNotFound) {
		return nil, err
	}
	created := &cart.Cart{UserID: userID}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// 并发首次加购可能撞 user_id 唯一索引，读已有的
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByUser(ctx, userID)
		}
		return nil, errs.Internal("create cart", err)
	}
	return created, nil
}

func (r *cartRepo) AddItem(ctx context.Context, cartID int64, item *cart.Item) error {
	item.CartID = cartID
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return errs.Internal("add cart item", err)
	}
	return nil
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID, quantity int64) error {
	res := r.db.WithContext(ctx).Model(&cart.Item{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		UpdateColumn("quantity", quantity)
	if res.Error != nil {
		return errs.Internal("update cart item", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("cart item not found")
	}
	return nil
}

func (r *cartRepo) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&cart.Item{})
	if res.Error != nil {
		return errs.Internal("remove cart item", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("cart item not found")
	}
	return nil
}

// ReplaceItems 对账写回：整体替换购物车条目
func (r *cartRepo) ReplaceItems(ctx context.Context, cartID int64, items []cart.Item) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&cart.Item{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].CartID = cartID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return errs.Internal("replace cart items", err)
	}
	return nil
}

func (r *cartRepo) Clear(ctx context.Context, cartID int64) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&cart.Item{}).Error; err != nil {
		return errs.Internal("clear cart", err)
	}
	return nil
}
