package main

import (
	"log"

	"github.com/kataras/iris/v12"

	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/logging"
	"github.com/anirudh-tech/IZONE-sub001/internal/server"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Init()

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	log.Printf("web server listening on %s", addr)
	if err := app.Run(iris.Addr(addr), iris.WithoutServerError(iris.ErrServerClosed)); err != nil {
		log.Fatalf("failed to run web server: %v", err)
	}
}
