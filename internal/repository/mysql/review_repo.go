package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/review"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建评论仓储
func NewReviewRepository(db *gorm.DB) review.Repository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*review.Review, error) {
	var rv review.Review
	if err := r.db.WithContext(ctx).First(&rv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrReviewNotFound
		}
		return nil, errs.Internal("query review", err)
	}
	return &rv, nil
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID int64) ([]*review.Review, error) {
	var list []*review.Review
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, errs.Internal("list reviews", err)
	}
	return list, nil
}

func (r *reviewRepo) Create(ctx context.Context, rv *review.Review) error {
	if err := r.db.WithContext(ctx).Create(rv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflict("review already exists for this product")
		}
		return errs.Internal("create review", err)
	}
	return nil
}

func (r *reviewRepo) Update(ctx context.Context, rv *review.Review) error {
	if err := r.db.WithContext(ctx).Save(rv).Error; err != nil {
		return errs.Internal("update review", err)
	}
	return nil
}

func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&review.Review{}, id)
	if res.Error != nil {
		return errs.Internal("delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrReviewNotFound
	}
	return nil
}
