package main

import (
	"flag"
	"log"

	"github.com/inkline/inkline-backend/internal/config"
	"github.com/inkline/inkline-backend/internal/domain"
	pkglogger "github.com/inkline/inkline-backend/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	seedTrunk := flag.Bool("seed-trunk", true, "create the trunk branch if missing")
	flag.Parse()

	config.LoadDotEnv()
	pkglogger.InitStructured(config.Env())
	zlog := pkglogger.GetLogger()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Info),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	zlog.Info().Msg("running schema migration")
	if err := db.AutoMigrate(
		&domain.Branch{},
		&domain.Content{},
		&domain.ContentVersion{},
		&domain.Review{},
		&domain.BranchTransition{},
		&domain.MergeHistory{},
	); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	zlog.Info().Msg("schema migration complete")

	if *seedTrunk {
		var count int64
		if err := db.Model(&domain.Branch{}).Where("is_trunk = ?", true).Count(&count).Error; err != nil {
			log.Fatalf("Trunk check failed: %v", err)
		}
		if count == 0 {
			trunk := &domain.Branch{
				Name:        "main",
				Description: "Canonical published content",
				State:       domain.BranchPublished,
				IsTrunk:     true,
				OwnerID:     "system",
			}
			if err := db.Create(trunk).Error; err != nil {
				log.Fatalf("Trunk seed failed: %v", err)
			}
			zlog.Info().Uint64("branch_id", trunk.ID).Msg("seeded trunk branch")
		} else {
			zlog.Info().Msg("trunk branch already present")
		}
	}
}
