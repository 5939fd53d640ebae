package main

import (
	"flag"
	"os"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/app"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
)

func main() {
	var (
		configPath string
		mode       string
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认在 . 与 ./config 下查找 tangerine.yaml")
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.StdLogger().Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if strings.EqualFold(cfg.Server.Mode, "release") {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Server.SessionSecret == "tangerine-dev-secret" {
			stdLog.Printf("警告: session secret 仍为默认值，请在生产环境中配置 TANGERINE_SERVER_SESSION_SECRET")
		}
	}

	// worker 只需要队列与 SMTP，不连接数据库
	if mode != app.ModeWorker {
		if err := db.Init(db.Options{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN}); err != nil {
			stdLog.Fatalf("failed to initialize database: %v", err)
		}
		if err := db.EnsureUser(db.DB, db.UserSeed{
			Username:    cfg.Admin.Username,
			Password:    cfg.Admin.Password,
			Email:       cfg.Admin.Email,
			IsSuperuser: true,
		}); err != nil {
			stdLog.Printf("警告: 初始化管理员失败: %v", err)
		}
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		DB:      db.DB,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("server exited: %v", err)
	}
}
