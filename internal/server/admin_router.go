package server

import (
	"github.com/kataras/iris/v12"

	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/infra/mq"
	"github.com/anirudh-tech/IZONE-sub001/internal/infra/redis"
	"github.com/anirudh-tech/IZONE-sub001/internal/repository/mysql"
	"github.com/anirudh-tech/IZONE-sub001/internal/service"
)

// productRequest 后台商品维护请求体
type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	InStock     *bool  `json:"inStock"` // 仅无规格商品生效
	Variants    []struct {
		Name  string `json:"name"`
		Stock int64  `json:"stock"`
	} `json:"variants"`
}

func (r *productRequest) applyTo(p *product.Product) {
	p.Name = r.Name
	p.Description = r.Description
	p.Price = r.Price
	p.Category = r.Category
	p.Status = r.Status
	if r.InStock != nil {
		p.InStock = *r.InStock
	}
	p.Variants = p.Variants[:0]
	for _, v := range r.Variants {
		p.Variants = append(p.Variants, product.Variant{
			ProductID: p.ID,
			Name:      v.Name,
			Stock:     v.Stock,
			InStock:   v.Stock > 0,
		})
	}
}

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由。
// 端口通常是 8081，与前台 Web 服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	userRepo := mysql.NewUserRepository(db)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	inventorySvc := service.NewInventoryService(productRepo, redisClient, cfg.Redis.StockCacheTTLSeconds)
	notifier := service.NewMQNotifier(mqConn)
	orderSvc := service.NewOrderService(orderRepo, productRepo, inventorySvc, notifier, cfg.Checkout.MaxOrderNumberRetries)

	api := app.Party("/api")

	// ---------- 商品管理 ----------

	// 商品列表（后台返回全部，含草稿）
	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	api.Get("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		p, err := productSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// 创建商品
	api.Post("/products", func(ctx iris.Context) {
		var req productRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p := &product.Product{}
		req.applyTo(p)
		if err := productSvc.Create(ctx.Request().Context(), p); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// 更新商品
	api.Put("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req productRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p, err := productSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		req.applyTo(p)
		if err := productSvc.Update(ctx.Request().Context(), p); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// 删除商品
	api.Delete("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := productSvc.Delete(ctx.Request().Context(), id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"deleted": true})
	})

	// ---------- 库存管理 ----------

	// 扣减库存（运营纠偏/线下出库用，走与下单相同的原子路径）
	api.Post("/inventory/decrement", func(ctx iris.Context) {
		var req struct {
			ProductID int64  `json:"productId"`
			Variant   string `json:"variant"`
			Quantity  int64  `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		res, err := inventorySvc.Decrement(ctx.Request().Context(), req.ProductID, req.Variant, req.Quantity)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, res)
	})

	// 补货
	api.Post("/inventory/restock", func(ctx iris.Context) {
		var req struct {
			ProductID int64  `json:"productId"`
			Variant   string `json:"variant"`
			Quantity  int64  `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		res, err := inventorySvc.Restock(ctx.Request().Context(), req.ProductID, req.Variant, req.Quantity)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, res)
	})

	// 可售查询
	api.Get("/inventory/{id:int64}/availability", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		variant := ctx.URLParam("variant")
		a, err := inventorySvc.CheckAvailability(ctx.Request().Context(), id, variant)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, a)
	})

	// ---------- 订单管理 ----------

	api.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := orderSvc.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	api.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		o, err := orderSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 客服按订单号查单
	api.Get("/orders/number/{number}", func(ctx iris.Context) {
		number := ctx.Params().Get("number")
		o, err := orderSvc.GetByNumber(ctx.Request().Context(), number)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 订单生命周期更新：只接受 status/paymentStatus/trackingNumber/notes
	api.Put("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req service.UpdateOrderRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		o, err := orderSvc.Update(ctx.Request().Context(), id, &req)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// ---------- 用户管理 ----------

	api.Get("/users", func(ctx iris.Context) {
		list, err := userSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// ---------- 运行状态 ----------

	api.Get("/stats", func(ctx iris.Context) {
		ok(ctx, service.GetMonitor().Snapshot())
	})
}
