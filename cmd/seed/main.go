package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/service"
)

// 演示数据生成器
func main() {
	var (
		configPath string
		tenant     string
		username   string
		password   string
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径")
	flag.StringVar(&tenant, "tenant", "", "目标租户，默认使用 tenant.default")
	flag.StringVar(&username, "user", "admin", "管理员用户名")
	flag.StringVar(&password, "password", "admin123", "管理员密码（仅在账号不存在时使用）")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.StdLogger().Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := db.Init(db.Options{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if tenant == "" {
		tenant = cfg.Tenant.Default
	}

	result, err := seedTenant(db.DB, tenant, time.Now(), db.UserSeed{
		Username:    username,
		Password:    password,
		Email:       username + "@example.com",
		IsSuperuser: true,
	})
	if errors.Is(err, service.ErrConfigExists) {
		fmt.Printf("租户 %s 已有站点配置，跳过\n", tenant)
		return
	}
	if err != nil {
		stdLog.Fatalf("生成演示数据失败: %v", err)
	}

	fmt.Println("演示数据生成完成！")
	fmt.Printf("租户: %s\n", result.Blog.Slug)
	fmt.Printf("用户: %s\n", username)
	fmt.Printf("分类: %d, 文章: %d, 评论: %d\n", result.Categories, result.Posts, result.Comments)
}
