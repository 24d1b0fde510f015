package server

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/anirudh-tech/IZONE-sub001/internal/auth"
	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
	"github.com/anirudh-tech/IZONE-sub001/internal/infra/mq"
	"github.com/anirudh-tech/IZONE-sub001/internal/infra/redis"
	"github.com/anirudh-tech/IZONE-sub001/internal/middleware"
	"github.com/anirudh-tech/IZONE-sub001/internal/repository/mysql"
	"github.com/anirudh-tech/IZONE-sub001/internal/service"
)

// RegisterRoutes 注册前台（买家侧）HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	reviewRepo := mysql.NewReviewRepository(db)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	inventorySvc := service.NewInventoryService(productRepo, redisClient, cfg.Redis.StockCacheTTLSeconds)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	notifier := service.NewMQNotifier(mqConn)
	orderSvc := service.NewOrderService(orderRepo, productRepo, inventorySvc, notifier, cfg.Checkout.MaxOrderNumberRetries)
	reviewSvc := service.NewReviewService(reviewRepo, productRepo)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		_ = ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Email    string `json:"email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Password, req.Email)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u)
	})

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"token": token})
	})

	// 需要登录的接口
	authAPI := api.Party("/", authRequired(cfg, tokenCache))

	// 当前登录用户信息
	authAPI.Get("/me", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		u, err := userSvc.GetByID(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, u)
	})

	// 商品列表（支持按分类筛选和关键字搜索）
	authAPI.Get("/products", func(ctx iris.Context) {
		category := ctx.URLParam("category")
		keyword := ctx.URLParam("q")
		var list []*product.Product
		var err error
		if category != "" {
			list, err = productSvc.ListByCategory(ctx.Request().Context(), category)
		} else {
			list, err = productSvc.ListPublished(ctx.Request().Context())
		}
		if err != nil {
			fail(ctx, err)
			return
		}
		if keyword != "" {
			kw := strings.ToLower(keyword)
			filtered := make([]*product.Product, 0, len(list))
			for _, p := range list {
				if strings.Contains(strings.ToLower(p.Name), kw) {
					filtered = append(filtered, p)
				}
			}
			list = filtered
		}
		ok(ctx, list)
	})

	// 商品详情
	authAPI.Get("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		p, err := productSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		if !p.Published() {
			// 未发布商品对买家不可见
			fail(ctx, errs.ErrProductNotFound)
			return
		}
		ok(ctx, p)
	})

	// 规格可售查询
	authAPI.Get("/products/{id:int64}/availability", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		variant := ctx.URLParam("variant")
		a, err := inventorySvc.CheckAvailability(ctx.Request().Context(), id, variant)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, a)
	})

	// 商品评论
	authAPI.Get("/products/{id:int64}/reviews", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		list, err := reviewSvc.ListByProduct(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Post("/products/{id:int64}/reviews", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		rv, err := reviewSvc.Create(ctx.Request().Context(), userID, id, req.Rating, req.Comment)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, rv)
	})

	authAPI.Put("/reviews/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		rv, err := reviewSvc.Update(ctx.Request().Context(), userID, id, req.Rating, req.Comment)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, rv)
	})

	authAPI.Delete("/reviews/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		if err := reviewSvc.Delete(ctx.Request().Context(), userID, id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"deleted": true})
	})

	// 购物车
	authAPI.Get("/cart", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		c, err := cartSvc.Get(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, c)
	})

	authAPI.Post("/cart/items", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var req struct {
			ProductID int64  `json:"productId"`
			Quantity  int64  `json:"quantity"`
			Variant   string `json:"variant"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		c, err := cartSvc.AddItem(ctx.Request().Context(), userID, req.ProductID, req.Quantity, req.Variant)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, c)
	})

	authAPI.Put("/cart/items/{id:int64}", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		itemID, _ := ctx.Params().GetInt64("id")
		var req struct {
			Quantity int64 `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		c, err := cartSvc.UpdateItemQuantity(ctx.Request().Context(), userID, itemID, req.Quantity)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, c)
	})

	authAPI.Delete("/cart/items/{id:int64}", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		itemID, _ := ctx.Params().GetInt64("id")
		c, err := cartSvc.RemoveItem(ctx.Request().Context(), userID, itemID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, c)
	})

	// 购物车对账：把存储的购物车与当前目录/库存对齐，返回变更明细
	authAPI.Post("/cart/validate", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		res, err := cartSvc.Reconcile(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, res)
	})

	// 下单（真正的库存闸门在这里）
	authAPI.Post("/checkout",
		middleware.CheckoutRateLimit(cfg.Checkout.RateCapacity, cfg.Checkout.RateRefillPerSecond),
		func(ctx iris.Context) {
			userID := ctx.Values().GetInt64Default("user_id", 0)
			var req service.CreateOrderRequest
			if err := ctx.ReadJSON(&req); err != nil {
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
				return
			}
			o, err := orderSvc.Create(ctx.Request().Context(), userID, &req)
			if err != nil {
				fail(ctx, err)
				return
			}
			// 下单成功后清空购物车，失败只记录
			if err := cartSvc.Clear(ctx.Request().Context(), userID); err != nil {
				service.GetMonitor().RecordDBError()
			}
			ok(ctx, o)
		})

	// 我的订单
	authAPI.Get("/orders", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		list, err := orderSvc.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Get("/orders/{id:int64}", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		id, _ := ctx.Params().GetInt64("id")
		o, err := orderSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		if o.UserID != userID {
			// 不暴露他人订单的存在性
			fail(ctx, errs.ErrOrderNotFound)
			return
		}
		ok(ctx, o)
	})
}
