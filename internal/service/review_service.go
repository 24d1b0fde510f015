package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/review"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

// ReviewService 评论服务。每次评论写操作后重算商品均分，
// 重算失败只记录——评分是派生缓存，宁可短暂过期也不让评论操作失败。
type ReviewService struct {
	reviews  review.Repository
	products product.Repository
}

// NewReviewService 创建评论服务
func NewReviewService(reviews review.Repository, products product.Repository) *ReviewService {
	return &ReviewService{reviews: reviews, products: products}
}

// ListByProduct 商品评论列表
func (s *ReviewService) ListByProduct(ctx context.Context, productID int64) ([]*review.Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.reviews.ListByProduct(ctx, productID)
}

// Create 发表评论并触发重算
func (s *ReviewService) Create(ctx context.Context, userID, productID int64, rating int, comment string) (*review.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("rating must be between 1 and 5")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	rv := &review.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.recomputeBestEffort(ctx, productID)
	return rv, nil
}

// Update 修改自己的评论并触发重算
func (s *ReviewService) Update(ctx context.Context, userID, reviewID int64, rating int, comment string) (*review.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("rating must be between 1 and 5")
	}
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if rv.UserID != userID {
		return nil, errs.Unauthorized("not your review")
	}
	rv.Rating = rating
	rv.Comment = comment
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, err
	}
	s.recomputeBestEffort(ctx, rv.ProductID)
	return rv, nil
}

// Delete 删除自己的评论并触发重算
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID int64) error {
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if rv.UserID != userID {
		return errs.Unauthorized("not your review")
	}
	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}
	s.recomputeBestEffort(ctx, rv.ProductID)
	return nil
}

// Recompute 重算商品均分与评论数：无评论时清零，
// 否则均值四舍五入保留一位小数。
func (s *ReviewService) Recompute(ctx context.Context, productID int64) error {
	list, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return s.products.UpdateRating(ctx, productID, 0, 0)
	}
	sum := 0
	for _, rv := range list {
		sum += rv.Rating
	}
	mean := float64(sum) / float64(len(list))
	rating := math.Round(mean*10) / 10
	return s.products.UpdateRating(ctx, productID, rating, int64(len(list)))
}

func (s *ReviewService) recomputeBestEffort(ctx context.Context, productID int64) {
	if err := s.Recompute(ctx, productID); err != nil {
		GetMonitor().RecordRecomputeError()
		zap.L().Warn("rating recompute failed",
			zap.Int64("product_id", productID), zap.Error(err))
	}
}
