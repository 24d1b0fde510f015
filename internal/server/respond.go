package server

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/anirudh-tech/IZONE-sub001/internal/auth"
	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
	"github.com/anirudh-tech/IZONE-sub001/internal/service"
)

// ok 成功响应统一信封
func ok(ctx iris.Context, data any) {
	_ = ctx.JSON(iris.Map{"code": 0, "data": data})
}

// fail 按错误分类返回结构化错误信封，internal 不外泄底层原因
func fail(ctx iris.Context, err error) {
	status := errs.HTTPStatus(err)
	kind := errs.KindOf(err)
	msg := err.Error()
	if kind == errs.KindInternal {
		zap.L().Error("request failed",
			zap.String("path", ctx.Path()), zap.Error(err))
		msg = "internal error"
	}
	ctx.StopWithJSON(status, iris.Map{"code": status, "kind": string(kind), "msg": msg})
}

// authRequired 解析 Bearer JWT，优先命中 Redis 缓存
func authRequired(cfg *config.Config, cache *auth.TokenCache) iris.Handler {
	return func(ctx iris.Context) {
		token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			fail(ctx, errs.Unauthorized("missing token"))
			return
		}

		rctx := ctx.Request().Context()
		claims, hit, err := cache.Get(rctx, token)
		if err != nil {
			// 缓存故障退化为本地解析
			service.GetMonitor().RecordRedisError()
		}
		if !hit || claims == nil {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				fail(ctx, errs.Unauthorized("invalid token"))
				return
			}
			if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
				fail(ctx, errs.Unauthorized("token expired"))
				return
			}
			_ = cache.Set(rctx, token, claims)
		}

		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("email", claims.Email)
		ctx.Next()
	}
}
