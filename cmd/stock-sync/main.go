package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/infra/redis"
	"github.com/anirudh-tech/IZONE-sub001/internal/logging"
	"github.com/anirudh-tech/IZONE-sub001/internal/repository/mysql"
)

const (
	redisStockKey = "shop:stock:%d:%s" // productID, variant
	checkInterval = 5 * time.Minute    // 每5分钟巡检一次
)

// 库存缓存一致性巡检：数据库是唯一事实来源，
// 缓存偏差和 in_stock 标记偏差都在这里被纠正。
func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Init()

	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	productRepo := mysql.NewProductRepository(db)

	log.Println("stock cache sync started...")

	for {
		syncOnce(context.Background(), productRepo, redisClient, cfg.Redis.StockCacheTTLSeconds)
		time.Sleep(checkInterval)
	}
}

func syncOnce(ctx context.Context, repo product.Repository, redisClient radix.Client, ttl int) {
	list, err := repo.ListAll(ctx)
	if err != nil {
		zap.L().Error("list products failed", zap.Error(err))
		return
	}

	fixedCache := 0
	fixedFlags := 0
	for _, p := range list {
		// 标记与规格库存不一致时重算
		if len(p.Variants) > 0 && p.InStock != p.AnyVariantInStock() {
			if _, err := repo.RefreshStockFlags(ctx, p.ID); err != nil {
				zap.L().Error("refresh stock flags failed",
					zap.Int64("product_id", p.ID), zap.Error(err))
			} else {
				fixedFlags++
			}
		}

		for _, v := range p.Variants {
			key := fmt.Sprintf(redisStockKey, p.ID, v.Name)
			var raw string
			if err := redisClient.Do(radix.Cmd(&raw, "GET", key)); err != nil {
				zap.L().Warn("stock cache read failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if raw == "" {
				continue // 缓存未命中，不主动回填
			}
			cached, err := strconv.ParseInt(raw, 10, 64)
			if err == nil && cached == v.Stock {
				continue
			}
			if err := redisClient.Do(radix.FlatCmd(nil, "SETEX", key, ttl, v.Stock)); err != nil {
				zap.L().Warn("stock cache rewrite failed", zap.String("key", key), zap.Error(err))
				continue
			}
			fixedCache++
		}
	}

	if fixedCache > 0 || fixedFlags > 0 {
		zap.L().Info("stock sync corrected drift",
			zap.Int("cache_entries", fixedCache), zap.Int("flag_products", fixedFlags))
	}
}
