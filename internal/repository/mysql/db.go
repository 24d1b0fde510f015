package mysql

import (
	"log"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/cart"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/order"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/review"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init 初始化全局 GORM 实例并自动迁移表结构。
// TranslateError 打开后，唯一索引冲突会转成 gorm.ErrDuplicatedKey，
// 订单号分配的重试逻辑依赖这一点。
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		db, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}

		if err = db.AutoMigrate(
			&user.User{},
			&product.Product{},
			&product.Variant{},
			&cart.Cart{},
			&cart.Item{},
			&order.Order{},
			&order.Item{},
			&review.Review{},
		); err != nil {
			log.Fatalf("auto migrate failed: %v", err)
		}
	})
	return db
}

// DB 获取全局 DB
func DB() *gorm.DB {
	return db
}
