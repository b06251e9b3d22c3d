// 手动查看当前触发培训提示的员工
//
// 与 GET /api/training/report 使用相同的统计逻辑，便于运维在无主管账号时排查。
//
// 用法: go run scripts/training_report.go [-config configs]

package main

import (
	"careiq_backend/internal/config"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/service"
	"careiq_backend/pkg/database"
	"careiq_backend/pkg/logger"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件所在目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	catalog, err := service.LoadTrainingCatalog(cfg.Training.CatalogPath)
	if err != nil {
		log.Fatalf("加载培训目录失败: %v", err)
	}

	activity := repository.NewActivityRepository(db)
	training := service.NewTrainingService(activity, repository.NewTrainingCompletionRepository(db), catalog)
	report := service.NewTrainingReportService(activity, repository.NewUserRepository(db), training)

	entries, err := report.Report(context.Background(), time.Now().UTC())
	if err != nil {
		log.Fatalf("生成报告失败: %v", err)
	}

	if len(entries) == 0 {
		log.Println("最近 24 小时内没有员工触发培训提示")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAFF\tEMAIL\tPRIORITY\tRP\tQUERIES\tMODULES")
	for _, e := range entries {
		modules := ""
		for i, m := range e.Status.RecommendedModules {
			if i > 0 {
				modules += ", "
			}
			modules += m.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.User.Name, e.User.Email, e.Status.Priority, e.Status.RPIncidents, e.Status.Queries, modules)
	}
	w.Flush()
}
