package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

const redisStockKey = "shop:stock:%d:%s" // productID, variant

// Availability 规格可售信息
type Availability struct {
	Available int64 `json:"available"` // 布尔库存商品为 -1（无计数）
	IsInStock bool  `json:"isInStock"`
}

// DecrementResult 扣减结果
type DecrementResult struct {
	Remaining      int64 `json:"remaining"`
	ProductInStock bool  `json:"productInStock"`
}

// InventoryService 库存台账：规格级计数的唯一修改入口。
// 所有扣减都走仓储层的条件 UPDATE，任何并发交错下库存不会为负。
type InventoryService struct {
	products product.Repository
	redis    radix.Client // 可为 nil，缓存只是加速，不参与正确性
	cacheTTL int
}

// NewInventoryService 创建库存服务
func NewInventoryService(products product.Repository, redis radix.Client, cacheTTLSeconds int) *InventoryService {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 30
	}
	return &InventoryService{products: products, redis: redis, cacheTTL: cacheTTLSeconds}
}

// CheckAvailability 查询某规格当前可售数量。
// 仅供展示与对账参考，真正的校验在扣减那一步。
func (s *InventoryService) CheckAvailability(ctx context.Context, productID int64, variant string) (*Availability, error) {
	if variant != "" {
		if cached, ok := s.cachedStock(productID, variant); ok {
			return &Availability{Available: cached, IsInStock: cached > 0}, nil
		}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if p.Mode() == product.StockBoolean {
		if variant != "" {
			return nil, errs.ErrVariantNotFound
		}
		return &Availability{Available: -1, IsInStock: p.InStock}, nil
	}

	v := p.FindVariant(variant)
	if v == nil {
		return nil, errs.ErrVariantNotFound
	}
	s.cacheStock(productID, variant, v.Stock)
	return &Availability{Available: v.Stock, IsInStock: v.InStock && v.Stock > 0}, nil
}

// Decrement 原子扣减规格库存。扣到 0 时翻转规格与聚合的 in_stock 标记。
func (s *InventoryService) Decrement(ctx context.Context, productID int64, variant string, qty int64) (*DecrementResult, error) {
	if qty <= 0 {
		return nil, errs.Validation("quantity must be positive")
	}
	if variant == "" {
		return nil, errs.Validation("variant is required")
	}

	remaining, err := s.products.DecrementVariantStock(ctx, productID, variant, qty)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientStock) {
			GetMonitor().RecordStockConflict()
		} else if errs.KindOf(err) == errs.KindInternal {
			GetMonitor().RecordDBError()
		}
		return nil, err
	}

	inStock, err := s.products.RefreshStockFlags(ctx, productID)
	if err != nil {
		// 扣减已生效，标记重算失败只记录，后续 stock-sync 兜底
		zap.L().Warn("refresh stock flags failed",
			zap.Int64("product_id", productID), zap.Error(err))
		inStock = remaining > 0
	}

	s.cacheStock(productID, variant, remaining)
	return &DecrementResult{Remaining: remaining, ProductInStock: inStock}, nil
}

// Restock 原子加回库存（后台补货、下单失败补偿共用）
func (s *InventoryService) Restock(ctx context.Context, productID int64, variant string, qty int64) (*DecrementResult, error) {
	remaining, err := s.products.IncrementVariantStock(ctx, productID, variant, qty)
	if err != nil {
		return nil, err
	}
	inStock, err := s.products.RefreshStockFlags(ctx, productID)
	if err != nil {
		zap.L().Warn("refresh stock flags failed",
			zap.Int64("product_id", productID), zap.Error(err))
		inStock = remaining > 0
	}
	s.cacheStock(productID, variant, remaining)
	return &DecrementResult{Remaining: remaining, ProductInStock: inStock}, nil
}

func (s *InventoryService) cachedStock(productID int64, variant string) (int64, bool) {
	if s.redis == nil {
		return 0, false
	}
	key := fmt.Sprintf(redisStockKey, productID, variant)
	var raw string
	if err := s.redis.Do(radix.Cmd(&raw, "GET", key)); err != nil {
		GetMonitor().RecordRedisError()
		return 0, false
	}
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *InventoryService) cacheStock(productID int64, variant string, stock int64) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(redisStockKey, productID, variant)
	if err := s.redis.Do(radix.FlatCmd(nil, "SETEX", key, s.cacheTTL, stock)); err != nil {
		GetMonitor().RecordRedisError()
		zap.L().Warn("stock cache write failed", zap.String("key", key), zap.Error(err))
	}
}
