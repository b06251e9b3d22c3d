// @title CareIQ API
// @version 2.0
// @description CareIQ 护理记录后端：进展记录、限制性措施识别、Nova 助手与培训提示。

// @contact.name CareIQ
// @license.name Proprietary

// @host localhost:8000
// @BasePath /

package main

import (
	"careiq_backend/internal/app"
	"careiq_backend/internal/config"
	"careiq_backend/pkg/logger"
	"flag"
	"log"
)

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件所在目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
